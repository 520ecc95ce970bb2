// Package tsplib reads explicit full-matrix TSPLIB instances and tour files.
package tsplib

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/copyleftdev/atsp/internal/atsp"
	"github.com/copyleftdev/atsp/internal/errors"
)

const component = "tsplib"

// maxLine bounds a single line; full-matrix rows of large instances are long.
const maxLine = 16 << 20

// ReadFile parses the instance stored at path.
func ReadFile(path string) (*atsp.Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.E(component, "read", errors.ErrNotFound, "instance file %s", path)
		}
		return nil, errors.Wrapf(err, "open instance %s", path).WithComponent(component).WithOperation("read")
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads NAME, COMMENT, DIMENSION, EDGE_WEIGHT_TYPE, EDGE_WEIGHT_FORMAT
// and a row-major EDGE_WEIGHT_SECTION. Both "KEY: value" and "KEY : value"
// are accepted. Only explicit FULL_MATRIX weights are supported.
func Parse(r io.Reader) (*atsp.Instance, error) {
	var (
		name, comment      string
		weightType, format string
		dimension          = -1
		values             []int
		inSection          bool
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == "EOF" {
			break
		}

		if inSection {
			if isKeyword(line) {
				inSection = false
			} else {
				for _, field := range strings.Fields(line) {
					v, err := strconv.Atoi(field)
					if err != nil {
						return nil, malformed("line %d: weight %q is not an integer", lineNo, field)
					}
					values = append(values, v)
				}
				continue
			}
		}

		key, value := splitKey(line)
		switch key {
		case "NAME":
			name = value
		case "COMMENT":
			if comment != "" {
				comment += "\n"
			}
			comment += value
		case "TYPE":
		case "DIMENSION":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return nil, malformed("line %d: invalid DIMENSION %q", lineNo, value)
			}
			dimension = n
		case "EDGE_WEIGHT_TYPE":
			weightType = value
		case "EDGE_WEIGHT_FORMAT":
			format = value
		case "EDGE_WEIGHT_SECTION":
			inSection = true
			if value != "" {
				return nil, malformed("line %d: unexpected data after EDGE_WEIGHT_SECTION", lineNo)
			}
		default:
			// Unknown header keys are tolerated.
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "scan instance").WithComponent(component).WithOperation("parse")
	}

	if dimension < 0 {
		return nil, malformed("missing DIMENSION")
	}
	if weightType != "" && !strings.EqualFold(weightType, "EXPLICIT") {
		return nil, errors.E(component, "parse", errors.ErrUnsupported, "EDGE_WEIGHT_TYPE %s", weightType)
	}
	if format != "" && !strings.EqualFold(format, "FULL_MATRIX") {
		return nil, errors.E(component, "parse", errors.ErrUnsupported, "EDGE_WEIGHT_FORMAT %s", format)
	}
	if len(values) != dimension*dimension {
		return nil, malformed("expected %d weights for dimension %d, got %d", dimension*dimension, dimension, len(values))
	}

	inst, err := atsp.NewInstanceFlat(name, dimension, values)
	if err != nil {
		return nil, errors.E(component, "parse", errors.ErrMalformed, "%v", err)
	}
	inst.Comment = comment
	inst.EdgeWeightType = weightType
	inst.EdgeWeightFormat = format
	return inst, nil
}

// ParseTour reads a tour. With a TOUR_SECTION the nodes are 1-based and end
// at -1, as TSPLIB tour files have them; otherwise the input is a plain
// whitespace separated list of 0-based nodes.
func ParseTour(r io.Reader) (atsp.Tour, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	var (
		tour      atsp.Tour
		tsplib    bool
		inSection bool
		done      bool
	)
	lineNo := 0
	for !done && sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == "EOF" {
			break
		}
		if key, _ := splitKey(line); key == "TOUR_SECTION" {
			tsplib, inSection = true, true
			continue
		}
		if isKeyword(line) {
			if tsplib {
				inSection = false
			}
			continue
		}
		if tsplib && !inSection {
			continue
		}

		for _, field := range strings.Fields(line) {
			v, err := strconv.Atoi(field)
			if err != nil {
				return nil, malformed("line %d: node %q is not an integer", lineNo, field)
			}
			if tsplib {
				if v == -1 {
					done = true
					break
				}
				v--
			}
			tour = append(tour, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "scan tour").WithComponent(component).WithOperation("parse_tour")
	}
	if len(tour) == 0 {
		return nil, malformed("empty tour")
	}
	return tour, nil
}

// ReadTourFile parses the tour stored at path.
func ReadTourFile(path string) (atsp.Tour, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.E(component, "read_tour", errors.ErrNotFound, "tour file %s", path)
		}
		return nil, errors.Wrapf(err, "open tour %s", path).WithComponent(component).WithOperation("read_tour")
	}
	defer f.Close()
	return ParseTour(f)
}

// splitKey splits "KEY: value", "KEY : value" and bare "KEY".
func splitKey(line string) (string, string) {
	key, value, found := strings.Cut(line, ":")
	if !found {
		return strings.ToUpper(strings.TrimSpace(line)), ""
	}
	return strings.ToUpper(strings.TrimSpace(key)), strings.TrimSpace(value)
}

// isKeyword reports whether a line starts a new header entry or
// section rather than carrying data.
func isKeyword(line string) bool {
	c := line[0]
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func malformed(format string, args ...interface{}) error {
	return errors.E(component, "parse", errors.ErrMalformed, "%s", fmt.Sprintf(format, args...))
}
