// Command rcsclean validates and repairs angular RCS series so that polar
// plots render without seam lines, gaps or spikes.
//
// Usage:
//
//	rcsclean process --in scan.json --out clean.json
//	rcsclean serve --config config.yaml
//	rcsclean demo
//	rcsclean stats --endpoint http://localhost:8080/metrics
//	rcsclean plot-config --title "Target A"
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
