// Package main provides the carouselctl command.
package main

import "github.com/bokamoso/signin/carouselctl/cmd"

func main() {
	cmd.Execute()
}
