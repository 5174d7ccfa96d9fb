package main

import "hiresync/internal/app"

func main() {
	app.Run()
}
