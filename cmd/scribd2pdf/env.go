package main

import (
	"io"
	"os"
	"time"

	scribd2pdf "github.com/alnah/go-scribd2pdf"
	"github.com/alnah/go-scribd2pdf/internal/config"
)

// FactoryFunc builds a session factory for a driver environment.
type FactoryFunc func(scribd2pdf.DriverEnvironment) (scribd2pdf.SessionFactory, error)

// Environment holds injectable dependencies for testability.
// Includes I/O, time, process environment, and the browser driver.
type Environment struct {
	Now        func() time.Time
	Stdout     io.Writer
	Stderr     io.Writer
	Getenv     func(string) string
	Environ    func() []string
	NewFactory FactoryFunc
	Config     *config.Config // Resolved once per command
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:        time.Now,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Getenv:     os.Getenv,
		Environ:    os.Environ,
		NewFactory: scribd2pdf.NewSessionFactory,
		Config:     config.DefaultConfig(),
	}
}
