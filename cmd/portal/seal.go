package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"vectorportal/internal/security"
)

// runSeal prints an enc: value for the config file. The plaintext comes
// from the first argument or, when absent, from the first line of stdin.
func runSeal(args []string) error {
	passphrase := os.Getenv("PORTAL_CONFIG_KEY")
	if passphrase == "" {
		return errors.New("PORTAL_CONFIG_KEY must be set to the passphrase used when loading the config")
	}
	out, err := sealInput(args, os.Stdin, passphrase)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func sealInput(args []string, stdin io.Reader, passphrase string) (string, error) {
	var plaintext string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		plaintext = args[0]
	} else {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("read secret: %w", err)
		}
		plaintext = strings.TrimRight(line, "\r\n")
	}
	if plaintext == "" {
		return "", errors.New("usage: portal seal <value>  (or pipe the value on stdin)")
	}
	if security.IsSealedValue(plaintext) {
		return "", errors.New("value is already sealed")
	}
	return security.SealValue(plaintext, passphrase)
}
