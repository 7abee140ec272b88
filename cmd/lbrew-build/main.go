// lbrew-build is the isolated build driver. The installer spawns it in
// its own process group with a formula descriptor and option flags; it
// runs the build script and reports structured failures back over the
// inherited error pipe.
package main

import (
	"os"

	"github.com/winordie-47/linuxbrew1/pkg/build"
)

func main() {
	os.Exit(build.Main(os.Args[1:]))
}
