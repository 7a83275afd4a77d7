package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	errx "github.com/VirtuLab-core-poc-v1/server/internal/core/error"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/apparatus"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/model"
)

type actionKind int

const (
	actApparatus actionKind = iota
	actAsk
	actRead
	actWait
	actFinish
	actHelp
	actQuit
)

// action is one parsed console line.
type action struct {
	kind     actionKind
	cmd      apparatus.Command
	question string
	wait     time.Duration
}

const labHelp = `Commands:
  light | off            toggle the Bunsen burner
  air <0-3|close|slightly|half|fully>
                         turn the collar over the air hole
  add <left|right> <g>   place a standard mass on a pan
  undo <left|right>      remove the last mass from a pan
  clear                  empty both pans
  sample <ice|room|warm|body|hot>
                         move the thermometer into a sample
  read                   show the apparatus reading (also: empty line)
  wait [duration]        let the apparatus run, e.g. wait 5s
  ask <question> | ? <question>
                         ask the lab guide
  finish                 finish the practical and collect XP
  quit                   leave without finishing`

// parseLine turns one console line into an action.
func parseLine(line string) (action, error) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "?") {
		return askAction(strings.TrimPrefix(line, "?"))
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return action{kind: actRead}, nil
	}

	verb, rest := strings.ToLower(fields[0]), fields[1:]
	switch verb {
	case "light", "off", "toggle":
		return apparatusAction(apparatus.ToggleLit{}), nil
	case "air", "collar":
		if len(rest) != 1 {
			return action{}, usage("air <0-3|close|slightly|half|fully>")
		}
		level, err := parseAirHole(rest[0])
		if err != nil {
			return action{}, err
		}
		return apparatusAction(apparatus.SetAirHole{Level: level}), nil
	case "add":
		if len(rest) != 2 {
			return action{}, usage("add <left|right> <grams>")
		}
		side, err := parseSide(rest[0])
		if err != nil {
			return action{}, err
		}
		mass, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(rest[1]), "g"))
		if err != nil {
			return action{}, errx.Newf(errx.InvalidCommand, "mass %q is not a whole number of grams", rest[1])
		}
		return apparatusAction(apparatus.AddWeight{Side: side, Mass: mass}), nil
	case "undo":
		if len(rest) != 1 {
			return action{}, usage("undo <left|right>")
		}
		side, err := parseSide(rest[0])
		if err != nil {
			return action{}, err
		}
		return apparatusAction(apparatus.UndoWeight{Side: side}), nil
	case "clear":
		return apparatusAction(apparatus.ClearWeights{}), nil
	case "sample":
		if len(rest) != 1 {
			return action{}, usage("sample <ice|room|warm|body|hot>")
		}
		return apparatusAction(apparatus.SelectSample{Sample: model.SampleID(strings.ToLower(rest[0]))}), nil
	case "read", "status":
		return action{kind: actRead}, nil
	case "wait":
		d := time.Second
		if len(rest) > 0 {
			parsed, err := time.ParseDuration(rest[0])
			if err != nil || parsed <= 0 {
				return action{}, errx.Newf(errx.InvalidCommand, "invalid duration %q", rest[0])
			}
			d = parsed
		}
		return action{kind: actWait, wait: d}, nil
	case "ask":
		return askAction(strings.Join(rest, " "))
	case "finish", "done":
		return action{kind: actFinish}, nil
	case "help", "h":
		return action{kind: actHelp}, nil
	case "quit", "exit", "q":
		return action{kind: actQuit}, nil
	}
	return action{}, errx.Newf(errx.InvalidCommand, "unknown command %q (type help)", fields[0])
}

func apparatusAction(cmd apparatus.Command) action {
	return action{kind: actApparatus, cmd: cmd}
}

func askAction(question string) (action, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return action{}, usage("ask <question>")
	}
	return action{kind: actAsk, question: question}, nil
}

func parseSide(s string) (model.Side, error) {
	switch strings.ToLower(s) {
	case "left", "l":
		return model.SideLeft, nil
	case "right", "r":
		return model.SideRight, nil
	}
	return "", errx.Newf(errx.InvalidCommand, "unknown pan %q", s)
}

func parseAirHole(s string) (int, error) {
	for i, label := range model.AirHoleLabels {
		if strings.EqualFold(s, label) {
			return i, nil
		}
	}
	level, err := strconv.Atoi(s)
	if err != nil {
		return 0, errx.Newf(errx.InvalidCommand, "unknown air hole setting %q", s)
	}
	// range is checked by the apparatus
	return level, nil
}

func usage(u string) error {
	return errx.New(errx.InvalidCommand, nil, fmt.Sprintf("usage: %s", u))
}
