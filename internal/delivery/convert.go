package delivery

// GBToUpstreamMB converts a package size to the aggregator's megabyte
// convention, which is decimal (x1000). Internal sizing elsewhere uses
// binary (x1024); keep this conversion at the adapter boundary so the
// mismatch stays explicit.
func GBToUpstreamMB(gb int) int {
	return gb * 1000
}
