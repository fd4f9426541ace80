package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Warder-Sonic/warder-wallet/internal/discovery"
	warderr "github.com/Warder-Sonic/warder-wallet/pkg/errors"
)

// promptSelectWallet asks the user to pick one of the installed
// wallets. Prompts go to stderr so stdout stays parseable.
func promptSelectWallet(candidates []discovery.Candidate) (string, error) {
	fmt.Fprintln(os.Stderr, "Installed wallets:")
	for i, c := range candidates {
		fmt.Fprintf(os.Stderr, "  %d) %s %s\n", i+1, c.Icon, c.Name)
	}
	fmt.Fprintf(os.Stderr, "Select wallet [1-%d]: ", len(candidates))

	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return "", warderr.WithSuggestion(warderr.ErrInvalidInput, "enter the wallet number")
	}

	idx, err := strconv.Atoi(strings.TrimSpace(response))
	if err != nil || idx < 1 || idx > len(candidates) {
		return "", warderr.WithDetails(warderr.ErrInvalidInput, map[string]string{
			"choice": response,
		})
	}
	return candidates[idx-1].Name, nil
}

// promptConfirm asks a yes/no question, defaulting to no.
func promptConfirm(question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", question)

	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return false
	}

	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}
