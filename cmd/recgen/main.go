//go:build !wasm

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/tinywasm/record"
)

func main() {
	g := record.NewRecgen()
	g.SetLog(func(messages ...any) {
		fmt.Fprintln(os.Stderr, messages...)
	})
	if err := g.Run(); err != nil {
		log.Fatalf("recgen: %v", err)
	}
}
