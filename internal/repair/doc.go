// Package repair turns a possibly-invalid angular value series into one that
// is safe to draw on a polar plot.
//
// Repairer.Run applies five ordered stages to a private copy of the input:
//
//  1. interpolate NaN/±Inf samples linearly over the index axis
//     (constant fill with MinValue when fewer than two finite samples exist)
//  2. floor every value ≤ 0 at MinValue
//  3. smooth with a periodic kernel that wraps across the 0°/360° seam
//  4. average the two seam samples when they differ by more than 10% of the mean
//  5. floor again at MinValue so rounding in 3–4 cannot undercut it
//
// Smoothing is a strategy (Smoother). Two backends exist: "gaussian" and
// "box". The gaussian backend is left out of builds tagged rcsclean_nogauss;
// asking for it then selects "box" and logs one informational event.
package repair
