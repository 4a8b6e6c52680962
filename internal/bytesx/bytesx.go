// Package bytesx byte size constants.
package bytesx

const (
	KiB = 1 << 10
	MiB = 1 << 20
	GiB = 1 << 30
)
