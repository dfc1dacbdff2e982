package main

import (
	"context"
	"log"

	"github.com/medialib-dev/medialib/internal/catalog"
)

func main() {
	if err := catalog.App(context.Background()); err != nil {
		log.Fatal(err)
	}
}
