package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// errGameNotFound terminates the offending connection: neither the room's
// storage nor the lobby directory knows the requested game id.
var errGameNotFound = errors.New("game not found")

// errLobbyBusy reports that the lobby actor failed to answer a synchronous
// query within the configured sync timeout.
var errLobbyBusy = errors.New("lobby did not respond in time")

// validationError covers bad input from a client: missing fields, a join on
// a started game, a forbidden last bid. It is reported back to the requesting
// connection only and never mutates game state or counts as a server fault.
type validationError struct {
	message string
}

func (e *validationError) Error() string {
	return e.message
}

func validationErrorf(format string, args ...any) error {
	return &validationError{message: fmt.Sprintf(format, args...)}
}

func isValidationError(err error) bool {
	var v *validationError
	return errors.As(err, &v)
}

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
