package main

import "os"

func readFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	return string(b), err
}

func writeFile(path, body string) error {
	return os.WriteFile(path, []byte(body), 0o644)
}
