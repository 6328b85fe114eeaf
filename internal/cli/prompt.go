package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/shopstack/shopsync/internal/models"
)

// promptConfirmOversized asks the user to confirm files over the size
// threshold. Confirmation covers the whole batch; there is no per-file pick.
func promptConfirmOversized(files []models.StagedFile, threshold int64) (bool, error) {
	fmt.Printf("\n%d file(s) exceed the %.1f MiB threshold:\n",
		len(files), float64(threshold)/(1024*1024))
	for _, f := range files {
		fmt.Printf("  %s (%.1f MiB)\n", f.Name, float64(f.SizeBytes)/(1024*1024))
	}
	fmt.Print("Upload anyway? [y/N]: ")

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
