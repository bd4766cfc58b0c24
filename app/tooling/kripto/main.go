// This program mines and verifies a local chain, runs identity proofs and
// manages signing keys for the Kripto ledger.
package main

import (
	"fmt"
	"os"

	"github.com/csbeno10/Kripto/app/tooling/kripto/cmd"
	"github.com/csbeno10/Kripto/foundation/logger"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger. Event narration is only written
	// when asked for with --verbose.
	log, err := logger.New("KRIPTO", "stderr")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cmd.NewRoot(build, log).Execute(); err != nil {
		log.Sync()
		os.Exit(1)
	}
}
