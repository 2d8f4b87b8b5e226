package main

import (
	"fmt"
	"os"

	projecthub "github.com/putto11262002/projecthub/app"
)

func main() {
	app, err := projecthub.New(nil, nil)
	if err != nil {
		failed(1, "%v\n", err)
	}
	if err := app.Start(); err != nil {
		failed(1, "%v\n", err)
	}
}

func failed(code int, s string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, s, args...)
	os.Exit(code)
}
