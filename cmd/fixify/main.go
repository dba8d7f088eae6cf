package main

import (
	"os"

	_ "time/tzdata"
)

// @title Fixify API
// @version 1.0.0
// @description Hostel facility complaint tracking
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
