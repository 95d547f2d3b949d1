package display

import (
	"fmt"
	"os"

	"github.com/backmassage/fetchmaster/internal/term"
)

// PrintBanner prints the ASCII art banner; uses Magenta if colors are enabled.
func PrintBanner() {
	if term.Enabled() {
		fmt.Fprint(os.Stdout, "\033[1;95m")
	}
	fmt.Fprint(os.Stdout, ` _____    _       _     __  __           _
|  ___|__| |_ ___| |__ |  \/  | __ _ ___| |_ ___ _ __
| |_ / _ \ __/ __| '_ \| |\/| |/ _`+"`"+` / __| __/ _ \ '__|
|  _|  __/ || (__| | | | |  | | (_| \__ \ ||  __/ |
|_|  \___|\__\___|_| |_|_|  |_|\__,_|___/\__\___|_|
`)
	if term.Enabled() {
		fmt.Fprintln(os.Stdout, term.NC)
	}
}
