// Package condition turns human-entered boundary text into typed values.
package condition

import (
	"strconv"
	"strings"
	"time"

	"github.com/ajitpratap0/mongobridge/pkg/errors"
	"github.com/ajitpratap0/mongobridge/pkg/tabular"
)

// Parser parses condition text. Now defaults to time.Now; Location to time.Local.
type Parser struct {
	Now      func() time.Time
	Location *time.Location
}

// Parse converts text into a value of kind. For date-like kinds it accepts
// "now", "today", "yesterday" and "-N" (N days ago) besides calendar literals.
func (p *Parser) Parse(text string, kind tabular.DataType) (tabular.Value, error) {
	switch {
	case kind.IsDate():
		t, err := p.parseDate(text)
		if err != nil {
			return tabular.Value{}, errors.Parse(text, kind.String(), err)
		}
		return tabular.Time(kind, t), nil
	case kind.IsInteger():
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return tabular.Value{}, errors.Parse(text, kind.String(), err)
		}
		return tabular.Int(kind, n), nil
	case kind.IsFloat():
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return tabular.Value{}, errors.Parse(text, kind.String(), err)
		}
		return tabular.Float(kind, f), nil
	}
	return tabular.String(kind, text), nil
}

func (p *Parser) parseDate(text string) (time.Time, error) {
	now := p.now()
	s := strings.TrimSpace(text)
	switch strings.ToLower(s) {
	case "now", "today":
		return now, nil
	case "yesterday":
		return now.AddDate(0, 0, -1), nil
	}
	if strings.HasPrefix(s, "-") {
		n, err := strconv.Atoi(s)
		if err != nil {
			return time.Time{}, err
		}
		return now.AddDate(0, 0, n), nil
	}
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	return tabular.ParseDateTime(s, loc)
}

func (p *Parser) now() time.Time {
	if p == nil || p.Now == nil {
		return time.Now()
	}
	return p.Now()
}
