// ABOUTME: Version constants
// ABOUTME: Product identification logged at startup
package version

const (
	Version      = "0.1.0"
	Product      = "Sendspin Tone"
	Manufacturer = "Sendspin"
)

// String returns the product and version for log lines
func String() string {
	return Product + " " + Version
}
