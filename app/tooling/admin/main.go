// This program performs administrative tasks for a namecore node.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/conf/v3"
	"github.com/hlandauf/namecore/app/tooling/admin/commands"
	"github.com/hlandauf/namecore/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		if !errors.Is(err, commands.ErrHelp) {
			log.Errorw("startup", "ERROR", err)
		}
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg := struct {
		conf.Version
		Args  conf.Args
		Chain struct {
			GenesisPath string `conf:"default:zblock/genesis.toml"`
			DBPath      string `conf:"default:zblock/blocks/"`
			NameDBPath  string `conf:"default:zblock/names/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "namecore admin tooling",
		},
	}

	const prefix = "ADMIN"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	return processCommands(cfg.Args, log, commands.Paths{
		Genesis: cfg.Chain.GenesisPath,
		Blocks:  cfg.Chain.DBPath,
		NameDB:  cfg.Chain.NameDBPath,
	})
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args conf.Args, log *zap.SugaredLogger, paths commands.Paths) error {
	switch args.Num(0) {
	case "verify":
		if err := commands.Verify(log, paths); err != nil {
			return fmt.Errorf("verifying name database: %w", err)
		}

	case "names":
		if err := commands.Names(paths, args.Num(1)); err != nil {
			return fmt.Errorf("listing names: %w", err)
		}

	default:
		fmt.Println("verify: replay the chain and compare it with the name database")
		fmt.Println("names [start]: list the names held in the name database")
		fmt.Println("provide a command to get more help.")
		return commands.ErrHelp
	}

	return nil
}
