package internal

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/sensiblebit/cadeskit"
)

// LoadPasswordsFromFile loads passwords from a file, one password per line
func LoadPasswordsFromFile(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var passwords []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if pwd := strings.TrimSpace(scanner.Text()); pwd != "" {
			passwords = append(passwords, pwd)
		}
	}
	return passwords, scanner.Err()
}

// ProcessPasswords merges the default keystore passwords, the command line
// list and the password file, dropping duplicates while preserving order.
func ProcessPasswords(passwordList []string, passwordFile string) ([]string, error) {
	passwords := append(cadeskit.DefaultPasswords(), passwordList...)

	if passwordFile != "" {
		filePasswords, err := LoadPasswordsFromFile(passwordFile)
		if err != nil {
			return nil, fmt.Errorf("loading passwords from file: %w", err)
		}
		passwords = append(passwords, filePasswords...)
	}

	seen := make(map[string]bool)
	var uniquePasswords []string
	for _, pwd := range passwords {
		if !seen[pwd] {
			seen[pwd] = true
			uniquePasswords = append(uniquePasswords, pwd)
		}
	}

	return uniquePasswords, nil
}

// ResolvePIN returns the container PIN to use. An explicit flag value wins;
// otherwise the first line of pinFile is used. A nil result leaves the PIN
// prompt to the CSP.
func ResolvePIN(flag string, flagSet bool, pinFile string) (*string, error) {
	if flagSet {
		return &flag, nil
	}
	if pinFile == "" {
		return nil, nil
	}
	pins, err := LoadPasswordsFromFile(pinFile)
	if err != nil {
		return nil, fmt.Errorf("loading PIN from file: %w", err)
	}
	if len(pins) == 0 {
		return nil, fmt.Errorf("PIN file %s is empty", pinFile)
	}
	return &pins[0], nil
}
