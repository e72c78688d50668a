package alpha

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// sessionHeaderRe matches: "Session Name";"2026-02-19 4:54 h";"1:02 hr"
	sessionHeaderRe = regexp.MustCompile(`^"(.+)";"(\d{4}-\d{2}-\d{2}\s+\d+:\d+)\s+h";"(.+)"$`)

	// exerciseHeaderRe matches: "1. Exercise Name · Equipment · 8 reps[· modifiers]"[;"warmup info"]
	exerciseHeaderRe = regexp.MustCompile(`^"(\d+)\.\s+(.+?)(?:\s+·\s+(\S.*?))?\s+·\s+(\d+)\s+reps(.*?)"(?:;"(.+)")?$`)

	// setRowRe matches: 1;115;8;1
	setRowRe = regexp.MustCompile(`^(\d+);(.+);(\d+);(.+)$`)

	// warmupRe matches: WU1 · 37,5 kg · 9 reps
	warmupRe = regexp.MustCompile(`WU(\d+)\s+·\s+(.+?)\s+kg\s+·\s+(\d+)\s+reps`)

	// dropSetsRe matches the exercise modifier: · 2 dropsets
	dropSetsRe = regexp.MustCompile(`(\d+)\s+drop\s?sets?`)

	// durationRe matches: 1:02 hr
	durationRe = regexp.MustCompile(`^(\d+):(\d{2})\s*(?:hr|h)$`)

	// minutesRe matches: 48 min
	minutesRe = regexp.MustCompile(`^(\d+)\s*min$`)
)

const columnHeader = "#;KG;REPS;RIR"

// parser accumulates sessions line by line. A blank line or a new session
// header closes the current session.
type parser struct {
	line     int
	sessions []Session
	session  *Session
	exercise *Exercise
}

// Parse reads an Alpha Progression CSV export and returns its sessions in
// file order. Lines that match no known shape are skipped.
func Parse(r io.Reader) ([]Session, error) {
	p := &parser{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		p.line++
		if err := p.feed(strings.TrimSpace(scanner.Text())); err != nil {
			return nil, fmt.Errorf("line %d: %w", p.line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}
	p.closeSession()
	return p.sessions, nil
}

func (p *parser) feed(line string) error {
	switch {
	case line == "":
		p.closeSession()
	case line == columnHeader:
	case sessionHeaderRe.MatchString(line):
		return p.startSession(sessionHeaderRe.FindStringSubmatch(line))
	case exerciseHeaderRe.MatchString(line):
		return p.startExercise(exerciseHeaderRe.FindStringSubmatch(line))
	case setRowRe.MatchString(line):
		return p.addSet(setRowRe.FindStringSubmatch(line))
	}
	return nil
}

func (p *parser) startSession(m []string) error {
	p.closeSession()
	date, err := parseSessionDate(m[2])
	if err != nil {
		return err
	}
	p.session = &Session{
		Name:     m[1],
		Date:     date,
		Duration: parseDuration(m[3]),
	}
	return nil
}

// startExercise handles the groups name, equipment (optional), target reps,
// modifiers and warmups (optional).
func (p *parser) startExercise(m []string) error {
	if p.session == nil {
		return fmt.Errorf("exercise without session: %q", m[0])
	}
	p.closeExercise()
	num, _ := strconv.Atoi(m[1])
	targetReps, _ := strconv.Atoi(m[4])
	ex := &Exercise{
		Number:     num,
		Name:       strings.TrimSpace(m[2]),
		Equipment:  strings.TrimSpace(m[3]),
		TargetReps: targetReps,
	}
	if d := dropSetsRe.FindStringSubmatch(m[5]); d != nil {
		ex.DropSets, _ = strconv.Atoi(d[1])
	}
	if m[6] != "" {
		ex.Sets = parseWarmups(m[6])
	}
	p.exercise = ex
	return nil
}

func (p *parser) addSet(m []string) error {
	if p.exercise == nil {
		return fmt.Errorf("set data without exercise: %q", m[0])
	}
	num, _ := strconv.Atoi(m[1])
	weight, added := parseWeight(m[2])
	reps, _ := strconv.Atoi(m[3])
	p.exercise.Sets = append(p.exercise.Sets, Set{
		Number:      num,
		Weight:      weight,
		AddedWeight: added,
		Reps:        reps,
		RIR:         parseRIR(m[4]),
	})
	return nil
}

func (p *parser) closeExercise() {
	if p.exercise == nil {
		return
	}
	p.session.Exercises = append(p.session.Exercises, *p.exercise)
	p.exercise = nil
}

func (p *parser) closeSession() {
	if p.session == nil {
		return
	}
	p.closeExercise()
	p.sessions = append(p.sessions, *p.session)
	p.session = nil
}

// parseSessionDate accepts "2026-02-19 4:54" and "2026-02-19 16:54".
func parseSessionDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 3:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse session date %q", s)
}

// parseDuration parses "1:02 hr" or "48 min". Unknown formats yield 0.
func parseDuration(s string) time.Duration {
	s = strings.TrimSpace(s)
	if m := durationRe.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		return time.Duration(h)*time.Hour + time.Duration(mins)*time.Minute
	}
	if m := minutesRe.FindStringSubmatch(s); m != nil {
		mins, _ := strconv.Atoi(m[1])
		return time.Duration(mins) * time.Minute
	}
	return 0
}

// parseRIR parses a reps-in-reserve cell. Empty, "-" and negative values
// mean untracked and yield -1.
func parseRIR(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return -1
	}
	f, err := parseDecimal(s)
	if err != nil || f < 0 {
		return -1
	}
	return f
}

// parseWarmups extracts warmup sets from the warmup cell, e.g.
// "WU1 · 37,5 kg · 9 reps<br>WU2 · 72,5 kg · 7 reps".
func parseWarmups(s string) []Set {
	var sets []Set
	for _, part := range strings.Split(s, "<br>") {
		m := warmupRe.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		weight, added := parseWeight(m[2])
		reps, _ := strconv.Atoi(m[3])
		sets = append(sets, Set{
			Number:      num,
			Weight:      weight,
			AddedWeight: added,
			Reps:        reps,
			RIR:         -1,
			Warmup:      true,
		})
	}
	return sets
}

// parseWeight handles decimal commas and added-weight notation:
// "+35" is (35, true), "102,5" is (102.5, false). Unparseable cells are 0.
func parseWeight(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	added := strings.HasPrefix(s, "+")
	w, _ := parseDecimal(strings.TrimPrefix(s, "+"))
	return w, added
}

func parseDecimal(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
}
