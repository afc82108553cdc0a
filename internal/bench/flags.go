package bench

import (
	"fmt"
	"strconv"
)

// ParseArgs parses the flags documented in cmd/locklab's usage text into a
// Config, starting from DefaultConfig for anything not overridden.
//
// The parser is hand-rolled rather than built on the flag package: the
// error-reporting contract (spec.md §7) distinguishes unrecognized flag,
// missing value, non-numeric value, out-of-range value, and unknown lock
// kind, and flag's own error strings don't preserve that distinction.
// Grounded on the teacher's own hand-rolled argument loops
// (parseBuildArgs/parseRunArgs in cmd/racedetector/build.go and run.go) and
// the original mutex_bench.cpp's manual "--flag value" loop.
func ParseArgs(args []string) (*Config, error) {
	cfg := DefaultConfig()

	for i := 0; i < len(args); i++ {
		arg := args[i]

		needValue := func(flag string) (string, error) {
			if i+1 >= len(args) {
				return "", fmt.Errorf("missing value for %s", flag)
			}
			i++
			return args[i], nil
		}

		switch arg {
		case "--threads":
			v, err := needValue(arg)
			if err != nil {
				return nil, err
			}
			n, err := parseInt(arg, v)
			if err != nil {
				return nil, err
			}
			cfg.Threads = n

		case "--duration-ms":
			v, err := needValue(arg)
			if err != nil {
				return nil, err
			}
			n, err := parseInt(arg, v)
			if err != nil {
				return nil, err
			}
			cfg.DurationMs = n

		case "--warmup-duration-ms":
			v, err := needValue(arg)
			if err != nil {
				return nil, err
			}
			n, err := parseInt(arg, v)
			if err != nil {
				return nil, err
			}
			cfg.WarmupDurationMs = n

		case "--critical-iters":
			v, err := needValue(arg)
			if err != nil {
				return nil, err
			}
			n, err := parseUint64(arg, v)
			if err != nil {
				return nil, err
			}
			cfg.CriticalIters = n

		case "--outside-iters":
			v, err := needValue(arg)
			if err != nil {
				return nil, err
			}
			n, err := parseUint64(arg, v)
			if err != nil {
				return nil, err
			}
			cfg.OutsideIters = n

		case "--timing-sample-stride":
			v, err := needValue(arg)
			if err != nil {
				return nil, err
			}
			n, err := parseUint64(arg, v)
			if err != nil {
				return nil, err
			}
			cfg.TimingSampleStride = n

		case "--lock-kind":
			v, err := needValue(arg)
			if err != nil {
				return nil, err
			}
			cfg.LockKind = LockKind(v)

		case "--help", "-h":
			return nil, fmt.Errorf("usage requested")

		default:
			return nil, fmt.Errorf("unrecognized flag: %s", arg)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseInt(flag, v string) (int, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q is not numeric", flag, v)
	}
	return int(n), nil
}

func parseUint64(flag, v string) (uint64, error) {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q is not numeric", flag, v)
	}
	return n, nil
}
