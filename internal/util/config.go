package util

import "time"

// Config holds runtime settings and flags.
type Config struct {
	SeedText         string
	DSN              string
	UseDB            bool
	Theme            string
	Questions        int
	Options          int
	SecondsPerQ      int
	LogFile          string
	LogLevel         string
	UserAgent        string
	WikiTimeout      time.Duration
	CountriesTimeout time.Duration
}
