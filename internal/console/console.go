// Package console reads operator commands line by line and turns them into
// engine inputs.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/gravitas-games/hexworld/pkg/engine"
	"github.com/gravitas-games/hexworld/pkg/hex"
	"github.com/gravitas-games/hexworld/pkg/tilemap"
)

// ClientID is the client every console input is submitted as.
const ClientID = "console"

// ErrUnknownCommand is wrapped by parse errors for unrecognised words.
var ErrUnknownCommand = errors.New("unknown command")

// Command is one parsed line. Input is nil for commands the console
// answers itself (maps, save).
type Command struct {
	Name  string
	Input engine.Input
}

// Parse turns the words of one line into a command. Blank words are
// skipped.
func Parse(line string) (Command, error) {
	words := strings.Fields(line)
	if len(words) == 0 {
		return Command{}, nil
	}
	name, args := strings.ToLower(words[0]), words[1:]
	from := engine.From{Client: ClientID}

	switch name {
	case "generate":
		if len(args) < 3 {
			return Command{}, usage(name, "<name> <width> <height> [wrap] [alternate|noise|fill] [rivers=N] [seed]")
		}
		w, err := parseUint8(args[1])
		if err != nil {
			return Command{}, err
		}
		h, err := parseUint8(args[2])
		if err != nil {
			return Command{}, err
		}
		in := engine.GenerateMap{From: from, Name: args[0], Width: w, Height: h}
		for _, opt := range args[3:] {
			switch opt {
			case "wrap":
				in.WrapsX = true
			case engine.GenAlternate, engine.GenNoise, engine.GenFill:
				in.Generator.Kind = opt
			default:
				if n, ok := strings.CutPrefix(opt, "rivers="); ok {
					rivers, err := strconv.Atoi(n)
					if err != nil || rivers < 0 {
						return Command{}, fmt.Errorf("generate: bad river count %q", n)
					}
					in.Generator.Rivers = rivers
					continue
				}
				seed, err := strconv.ParseInt(opt, 10, 64)
				if err != nil {
					return Command{}, fmt.Errorf("generate: unexpected option %q", opt)
				}
				in.Generator.Seed = seed
			}
		}
		return Command{Name: name, Input: in}, nil

	case "remove":
		if len(args) != 1 {
			return Command{}, usage(name, "<name>")
		}
		return Command{Name: name, Input: engine.RemoveMap{From: from, Name: args[0]}}, nil

	case "select":
		if len(args) != 3 {
			return Command{}, usage(name, "<map> <q> <r>")
		}
		c, err := parseCoord(args[1], args[2])
		if err != nil {
			return Command{}, err
		}
		return Command{Name: name, Input: engine.SelectTile{From: from, Map: args[0], Coord: c}}, nil

	case "spawn":
		if len(args) != 4 {
			return Command{}, usage(name, "<map> <q> <r> <kind>")
		}
		c, err := parseCoord(args[1], args[2])
		if err != nil {
			return Command{}, err
		}
		return Command{Name: name, Input: engine.SpawnEntity{From: from, Map: args[0], Coord: c, Kind: args[3]}}, nil

	case "despawn":
		if len(args) != 1 {
			return Command{}, usage(name, "<id>")
		}
		id, err := parseEntity(args[0])
		if err != nil {
			return Command{}, err
		}
		return Command{Name: name, Input: engine.DespawnEntity{From: from, Entity: id}}, nil

	case "move":
		if len(args) != 3 {
			return Command{}, usage(name, "<id> <q> <r>")
		}
		id, err := parseEntity(args[0])
		if err != nil {
			return Command{}, err
		}
		c, err := parseCoord(args[1], args[2])
		if err != nil {
			return Command{}, err
		}
		return Command{Name: name, Input: engine.MoveEntity{From: from, Entity: id, Goal: c}}, nil

	case "quit":
		return Command{Name: name, Input: engine.Quit{From: from}}, nil

	case "maps", "save":
		return Command{Name: name}, nil

	default:
		return Command{}, fmt.Errorf("%w: %s", ErrUnknownCommand, words[0])
	}
}

func usage(name, args string) error {
	return fmt.Errorf("usage: %s %s", name, args)
}

func parseUint8(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%q is not a size between 0 and 255", s)
	}
	return uint8(v), nil
}

func parseCoord(q, r string) (hex.Axial, error) {
	qi, err := strconv.Atoi(q)
	if err != nil {
		return hex.Axial{}, fmt.Errorf("bad q %q", q)
	}
	ri, err := strconv.Atoi(r)
	if err != nil {
		return hex.Axial{}, fmt.Errorf("bad r %q", r)
	}
	return hex.Axial{Q: qi, R: ri}, nil
}

func parseEntity(s string) (tilemap.EntityID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad entity id %q", s)
	}
	return tilemap.EntityID(v), nil
}

// SaveFunc writes a snapshot on demand and returns where it went.
type SaveFunc func() (string, error)

// Console feeds parsed commands to a pump.
type Console struct {
	pump   *engine.Pump
	save   SaveFunc
	out    io.Writer
	logger *log.Logger
}

// New creates a console. save may be nil, which disables the save command.
func New(pump *engine.Pump, save SaveFunc, out io.Writer, logger *log.Logger) *Console {
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[console] ", log.LstdFlags)
	}
	return &Console{pump: pump, save: save, out: out, logger: logger}
}

// Run reads commands from r until EOF. Bad lines are logged and skipped.
func (c *Console) Run(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := c.Exec(scanner.Text()); err != nil {
			c.logger.Printf("%v", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("console read failed: %w", err)
	}
	return nil
}

// Exec runs a single line.
func (c *Console) Exec(line string) error {
	cmd, err := Parse(line)
	if err != nil {
		return err
	}
	switch {
	case cmd.Name == "":
		return nil
	case cmd.Input != nil:
		if err := c.pump.Submit(cmd.Input); err != nil {
			return fmt.Errorf("%s: %w", cmd.Name, err)
		}
		return nil
	case cmd.Name == "maps":
		eng := c.pump.Engine()
		for _, name := range eng.MapNames() {
			info, err := eng.Map(name)
			if err != nil {
				continue
			}
			wrap := ""
			if info.WrapsX {
				wrap = " wraps"
			}
			fmt.Fprintf(c.out, "%s %dx%d%s tiles=%d entities=%d\n", info.Name, info.Width, info.Height, wrap, info.Tiles, info.Entities)
		}
		return nil
	case cmd.Name == "save":
		if c.save == nil {
			return errors.New("save: persistence is disabled")
		}
		path, err := c.save()
		if err != nil {
			return fmt.Errorf("save: %w", err)
		}
		fmt.Fprintf(c.out, "saved %s\n", path)
		return nil
	}
	return nil
}
