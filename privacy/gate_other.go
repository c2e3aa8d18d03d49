//go:build !darwin

package privacy

// SystemDetector returns a Detector that never reports secure input.
// Other platforms expose no system-wide secure input flag.
func SystemDetector() Detector {
	return DetectorFunc(func() bool { return false })
}
