// Package validate inspects an angular value series for the four issue
// classes that produce polar-plot artifacts:
//
//   - non_finite: NaN or ±Inf samples
//   - negative: samples below zero (RCS is physically non-negative)
//   - discontinuity: more than 5% of |gradient| entries above 3× the 95th
//     percentile of |gradient|
//   - boundary_mismatch: |v[0] − v[N−1]| above 10% of the mean of finite values
//
// Check is pure: every check reads the original input and none depends on
// another. The discontinuity check is a percentile heuristic and is only
// rank-equivalent to other implementations, not bit-exact.
package validate
