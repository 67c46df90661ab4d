package logroute

import (
	"errors"
	"strings"
)

// logLevel identifies the severity of a log call.
type logLevel string

const (
	LevelTrace logLevel = "trace"
	LevelDebug logLevel = "debug"
	LevelLog   logLevel = "log"
	LevelInfo  logLevel = "info"
	LevelWarn  logLevel = "warn"
	LevelError logLevel = "error"
)

type levelWeight int

// Weights are spaced apart so additional levels can slot in between
// existing ones without renumbering.
const (
	levelWeightTrace levelWeight = 10
	levelWeightDebug levelWeight = 20
	levelWeightLog   levelWeight = 30
	levelWeightInfo  levelWeight = 40
	levelWeightWarn  levelWeight = 50
	levelWeightError levelWeight = 60
)

var levelMap = map[logLevel]levelWeight{
	LevelTrace: levelWeightTrace,
	LevelDebug: levelWeightDebug,
	LevelLog:   levelWeightLog,
	LevelInfo:  levelWeightInfo,
	LevelWarn:  levelWeightWarn,
	LevelError: levelWeightError,
}

// ParseLevel parses a string into a log level.
// It is case-insensitive. It returns an error if the input string is not a valid level name.
func ParseLevel(levelStr string) (logLevel, error) {
	level := logLevel(strings.ToLower(levelStr))
	if _, ok := levelMap[level]; ok {
		return level, nil
	}

	return "", errors.New("invalid log level: " + levelStr)
}
