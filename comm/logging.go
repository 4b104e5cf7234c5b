package comm

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"
)

var settings = &struct {
	quiet   bool
	verbose bool
	json    bool
}{
	false,
	false,
	false,
}

// Configure sets all logging options in one go
func Configure(quiet, verbose, json bool) {
	settings.quiet = quiet
	settings.verbose = verbose
	settings.json = json
}

type jsonMessage map[string]interface{}

// Opf prints a formatted string informing the user on what operation we're doing
func Opf(format string, args ...interface{}) {
	Logf("• %s", fmt.Sprintf(format, args...))
}

// Statf prints a formatted string informing the user how an operation went
func Statf(format string, args ...interface{}) {
	Logf("✓ %s", fmt.Sprintf(format, args...))
}

// Log sends an informational message to the client
func Log(msg string) {
	Logl("info", msg)
}

// Logf sends a formatted informational message to the client
func Logf(format string, args ...interface{}) {
	Loglf("info", format, args...)
}

// Warn lets the user know about a problem that's non-critical
func Warn(msg string) {
	Logl("warning", msg)
}

// Warnf is a formatted variant of Warn
func Warnf(format string, args ...interface{}) {
	Loglf("warning", format, args...)
}

// Debug messages are like Info messages, but printed only when verbose
func Debug(msg string) {
	Logl("debug", msg)
}

// Debugf is a formatted variant of Debug
func Debugf(format string, args ...interface{}) {
	Loglf("debug", format, args...)
}

// Logl logs a message of a given level
func Logl(level string, msg string) {
	send("log", jsonMessage{
		"message": msg,
		"level":   level,
	})
}

// Loglf logs a formatted message of a given level
func Loglf(level string, format string, args ...interface{}) {
	Logl(level, fmt.Sprintf(format, args...))
}

// Die exits with a non-zero exit code after giving a reason to the client
func Die(msg string) {
	send("error", jsonMessage{
		"message": msg,
	})
	os.Exit(1)
}

// Dief is a formatted variant of Die
func Dief(format string, args ...interface{}) {
	Die(fmt.Sprintf(format, args...))
}

// Result sends a result
func Result(value interface{}) {
	send("result", jsonMessage{
		"value": value,
	})
}

// sends a message to the client
func send(msgType string, obj jsonMessage) {
	if settings.json {
		obj["type"] = msgType
		obj["time"] = time.Now().UTC().Unix()
		if msgType == "log" && obj["level"] == "debug" && !settings.verbose {
			return
		}
		sendJSON(obj)
		return
	}

	switch msgType {
	case "log":
		level, _ := obj["level"].(string)
		message, _ := obj["message"].(string)
		switch level {
		case "debug":
			if settings.verbose && !settings.quiet {
				log.Printf("%s\n", message)
			}
		case "info":
			if !settings.quiet {
				log.Printf("%s\n", message)
			}
		default:
			log.Printf("%s: %s\n", level, message)
		}
	case "error":
		message, _ := obj["message"].(string)
		log.Printf("error: %s\n", message)
	}
}

func sendJSON(obj jsonMessage) {
	marshalled, err := json.Marshal(obj)
	if err != nil {
		log.Printf("could not marshal json message: %s\n", err.Error())
		return
	}

	fmt.Println(string(marshalled))
}
