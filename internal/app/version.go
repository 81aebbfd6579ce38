package app

import (
	"fmt"
	"io"
	"os"
)

// Version information (set by build flags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// ShowVersion displays version information
func ShowVersion() {
	WriteVersion(os.Stdout)
}

// WriteVersion writes version information to w
func WriteVersion(w io.Writer) {
	fmt.Fprintf(w, "adsbtrack Mode S / ADS-B tracker\n")
	fmt.Fprintf(w, "Version: %s\n", Version)
	fmt.Fprintf(w, "Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", GitCommit)
}
