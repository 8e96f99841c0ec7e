package main

import "github.com/spectriclabs/spe-data-service/internal/app"

func main() {
	app.Run()
}
