package main

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/yedirenklicinar/akademi/core/exam"
	"github.com/yedirenklicinar/akademi/core/quiz"
)

const optionLetters = "abcdefghij"

// solve runs one quiz attempt interactively until it is submitted or abandoned.
// The countdown runs alongside; when it expires the attempt submits itself and
// the loop notices on its next pass.
func (c *console) solve(ctx context.Context, t exam.Test) error {
	att := quiz.NewAttempt(t, c.ctrl, c.store, c.logger)
	actx, cancel := context.WithCancel(ctx)
	defer cancel()
	go att.Start(actx)

	c.printf("\n%s", t.Title)
	if t.DurationMinutes != nil {
		c.printf(" (%d min)", *t.DurationMinutes)
	}
	c.printf(" - %d questions\n", len(t.Questions))
	c.printf("answer with a letter; n/p to move, g N to jump, sheet, time, submit, quit\n")

	for {
		if att.Status() == quiz.StatusSubmitted {
			c.printResult(att, t)
			return nil
		}
		c.renderQuestion(att)

		line, ok := c.readLine("quiz> ")
		if !ok {
			return nil
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		var err error
		switch fields[0] {
		case "n", "next":
			err = att.Next()
		case "p", "prev":
			err = att.Previous()
		case "g", "goto":
			if len(fields) < 2 {
				c.printf("usage: g QUESTION_NUMBER\n")
				continue
			}
			n, aerr := strconv.Atoi(fields[1])
			if aerr != nil {
				c.printf("usage: g QUESTION_NUMBER\n")
				continue
			}
			err = att.GoTo(n - 1)
		case "sheet":
			c.printSheet(att, t)
		case "time":
			if t.DurationMinutes == nil {
				c.printf("no time limit\n")
			} else {
				c.printf("%s remaining\n", att.Remaining().Round(time.Second))
			}
		case "submit":
			if _, serr := att.Submit(ctx); serr != nil {
				// the attempt rolled back with its answers intact; the
				// student may fix up and submit again
				c.printf("%v\n", serr)
				continue
			}
			c.printResult(att, t)
			return nil
		case "quit":
			answer, _ := c.readLine("abandon the attempt without submitting? [y/N]: ")
			if strings.EqualFold(strings.TrimSpace(answer), "y") {
				return nil
			}
		default:
			idx := letterIndex(fields[0])
			if idx < 0 {
				c.printf("unknown command %q\n", fields[0])
				continue
			}
			q, qok := att.CurrentQuestion()
			if !qok || idx >= len(q.Options) {
				c.printf("no such option\n")
				continue
			}
			err = att.SelectOption(q.ID, q.Options[idx].ID)
		}

		if err != nil {
			c.printf("%v\n", err)
		}
	}
}

func (c *console) renderQuestion(att *quiz.Attempt) {
	q, ok := att.CurrentQuestion()
	if !ok {
		c.printf("this test has no questions\n")
		return
	}
	answers := att.Answers()

	c.printf("\n[%d] %s\n", att.CurrentIndex()+1, q.Content)
	if q.ImageURL != "" {
		c.printf("    (image: %s)\n", q.ImageURL)
	}
	chosen, answered := answers[q.ID]
	for i, o := range q.Options {
		marker := " "
		if answered && o.ID == chosen {
			marker = "*"
		}
		c.printf("  %s %c) %s\n", marker, optionLetters[i], o.Text)
	}
	c.printf("(%d answered)\n", len(answers))
}

func (c *console) printSheet(att *quiz.Attempt, t exam.Test) {
	answers := att.Answers()
	c.printf("answer sheet:\n")
	for i, q := range t.Questions {
		state := "-"
		if _, answered := answers[q.ID]; answered {
			state = "answered"
		}
		c.printf("  %2d. %s\n", i+1, state)
	}
}

func (c *console) printResult(att *quiz.Attempt, t exam.Test) {
	sub, ok := att.Result()
	if !ok {
		return
	}
	c.printf("\nsubmitted: %d/100 (%d of %d answered)\n", sub.Score, len(sub.Answers), len(t.Questions))
}

func letterIndex(s string) int {
	if len(s) != 1 {
		return -1
	}
	return strings.IndexByte(optionLetters, s[0])
}
