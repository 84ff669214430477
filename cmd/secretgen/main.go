// Package main provides a CLI tool for provisioning the operator credential.
// It prints the bcrypt hash to export as OPERATOR_SECRET_HASH.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"veridesk/pkg/secrets"
)

type output struct {
	Secret string            `json:"secret,omitempty"`
	Hash   string            `json:"hash"`
	Usage  map[string]string `json:"usage"`
}

func main() {
	secret := flag.String("secret", "", "Secret to hash. Generated if empty.")
	asJSON := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	generated := false
	value := *secret
	if value == "" {
		var err error
		value, err = secrets.Generate()
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to generate secret:", err)
			os.Exit(1)
		}
		generated = true
	}

	hash, err := secrets.Hash(value)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to hash secret:", err)
		os.Exit(1)
	}

	if *asJSON {
		out := output{
			Hash: hash,
			Usage: map[string]string{
				"env": "export OPERATOR_SECRET_HASH='" + hash + "'",
			},
		}
		if generated {
			out.Secret = value
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
		return
	}

	if generated {
		fmt.Println("secret:", value)
	}
	fmt.Println("hash:  ", hash)
	fmt.Println()
	fmt.Println("export OPERATOR_SECRET_HASH='" + hash + "'")
}
