package main

import (
	"os"

	"horse.fit/trustbrief/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
