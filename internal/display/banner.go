package display

import (
	"fmt"
	"os"

	"github.com/Andraszao/Image-Preprocessor/internal/logging"
)

// PrintBanner prints the startup banner; uses Magenta if colors are enabled.
func PrintBanner() {
	if logging.Magenta != "" {
		fmt.Fprint(os.Stdout, "\033[1;95m")
	}
	fmt.Fprint(os.Stdout, ` _
(_)_ __ ___   __ _  __ _  ___ _ __  _ __ ___ _ __
| | '_ `+"`"+` _ \ / _`+"`"+` |/ _`+"`"+` |/ _ \ '_ \| '__/ _ \ '_ \
| | | | | | | (_| | (_| |  __/ |_) | | |  __/ |_) |
|_|_| |_| |_|\__,_|\__, |\___| .__/|_|  \___| .__/
                   |___/     |_|            |_|
`)
	if logging.Magenta != "" {
		fmt.Fprintln(os.Stdout, logging.NC)
	}
}
