package config

import (
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// FlagType represents the type of a flag value
type FlagType int

const (
	BoolType FlagType = iota
	StringType
	IntType
	Int64Type
	DurationType
)

// FlagDef holds metadata for a single flag (short + long names, type, default, description)
type FlagDef struct {
	Short       string
	Long        string
	Type        FlagType
	Default     interface{}
	Description string
}

// FlagGroup is a named category containing related flags
type FlagGroup struct {
	Name  string
	Flags []FlagDef
}

// HelpFormatter holds the tool info and ordered flag groups for custom help rendering
type HelpFormatter struct {
	ToolName    string
	Description string
	Groups      []*FlagGroup
}

// addBoolFlag registers a bool flag with both short and long names and appends it to the group
func addBoolFlag(group *FlagGroup, p *bool, short, long string, value bool, usage string) {
	if short != "" {
		flag.BoolVar(p, short, value, usage)
	}
	if long != "" {
		flag.BoolVar(p, long, value, usage)
	}
	group.Flags = append(group.Flags, FlagDef{
		Short:       short,
		Long:        long,
		Type:        BoolType,
		Default:     value,
		Description: usage,
	})
}

// addStringFlag registers a string flag with both short and long names and appends it to the group
func addStringFlag(group *FlagGroup, p *string, short, long string, value string, usage string) {
	if short != "" {
		flag.StringVar(p, short, value, usage)
	}
	if long != "" {
		flag.StringVar(p, long, value, usage)
	}
	group.Flags = append(group.Flags, FlagDef{
		Short:       short,
		Long:        long,
		Type:        StringType,
		Default:     value,
		Description: usage,
	})
}

// addIntFlag registers an int flag with both short and long names and appends it to the group
func addIntFlag(group *FlagGroup, p *int, short, long string, value int, usage string) {
	if short != "" {
		flag.IntVar(p, short, value, usage)
	}
	if long != "" {
		flag.IntVar(p, long, value, usage)
	}
	group.Flags = append(group.Flags, FlagDef{
		Short:       short,
		Long:        long,
		Type:        IntType,
		Default:     value,
		Description: usage,
	})
}

// addInt64Flag registers an int64 flag with both short and long names and appends it to the group
func addInt64Flag(group *FlagGroup, p *int64, short, long string, value int64, usage string) {
	if short != "" {
		flag.Int64Var(p, short, value, usage)
	}
	if long != "" {
		flag.Int64Var(p, long, value, usage)
	}
	group.Flags = append(group.Flags, FlagDef{
		Short:       short,
		Long:        long,
		Type:        Int64Type,
		Default:     value,
		Description: usage,
	})
}

// addDurationFlag registers a duration flag with both short and long names and appends it to the group
func addDurationFlag(group *FlagGroup, p *time.Duration, short, long string, value time.Duration, usage string) {
	if short != "" {
		flag.DurationVar(p, short, value, usage)
	}
	if long != "" {
		flag.DurationVar(p, long, value, usage)
	}
	group.Flags = append(group.Flags, FlagDef{
		Short:       short,
		Long:        long,
		Type:        DurationType,
		Default:     value,
		Description: usage,
	})
}

// RegisterFlags creates all flag groups, registers every flag with the standard flag package,
// and returns a populated HelpFormatter.
func RegisterFlags(cfg *Config) *HelpFormatter {
	formatter := &HelpFormatter{
		ToolName:    "chainHTTP",
		Description: "HTTP redirect chain resolver",
	}

	// INPUT
	input := &FlagGroup{Name: "INPUT"}
	addStringFlag(input, &cfg.InputFile, "i", "input", "", "Input file with one URL per line (default: stdin)")
	formatter.Groups = append(formatter.Groups, input)

	// OUTPUT
	output := &FlagGroup{Name: "OUTPUT"}
	addStringFlag(output, &cfg.OutputFile, "o", "output", "", "Output file (default: stdout)")
	addBoolFlag(output, &cfg.StoreResponse, "sr", "store-response", false, "Store every hop's response to the output directory")
	addStringFlag(output, &cfg.StoreResponseDir, "srd", "store-response-dir", "output", "Directory to store hop responses")
	addBoolFlag(output, &cfg.IncludeResponse, "irr", "include-response", false, "Include per-hop headers, body and latency in JSON output")
	formatter.Groups = append(formatter.Groups, output)

	// PROBES
	probes := &FlagGroup{Name: "PROBES"}
	addBoolFlag(probes, &cfg.Fingerprint, "fp", "fingerprint", false, "Fingerprint every hop (hashes, title, CDN)")
	addBoolFlag(probes, &cfg.TechDetect, "td", "tech-detect", false, "Enable technology detection using wappalyzer (implies --fingerprint)")
	formatter.Groups = append(formatter.Groups, probes)

	// CONFIGURATION
	configuration := &FlagGroup{Name: "CONFIGURATION"}
	addIntFlag(configuration, &cfg.MaxRedirects, "maxr", "max-redirects", 20, "Max redirects followed per chain")
	addStringFlag(configuration, &cfg.Method, "m", "method", "HEAD", "Probe method (HEAD or GET)")
	addInt64Flag(configuration, &cfg.MaxBodySize, "", "max-body-size", 1<<20, "Maximum captured body size per hop in bytes")
	addBoolFlag(configuration, &cfg.InsecureSkipVerify, "k", "insecure", false, "Skip TLS certificate verification")
	addStringFlag(configuration, &cfg.UserAgent, "ua", "user-agent", "", "Custom User-Agent header")
	addBoolFlag(configuration, &cfg.HTTP3, "", "http3", false, "Probe https hops over HTTP/3 (QUIC)")
	formatter.Groups = append(formatter.Groups, configuration)

	// RATE-LIMIT
	rateLimit := &FlagGroup{Name: "RATE-LIMIT"}
	addDurationFlag(rateLimit, &cfg.Timeout, "t", "timeout", 10*time.Second, "Per-hop request timeout")
	addDurationFlag(rateLimit, &cfg.ChainTimeout, "", "chain-timeout", 0, "Timeout for a whole chain (0 disables it)")
	addIntFlag(rateLimit, &cfg.Concurrency, "c", "concurrency", 20, "Chains resolved concurrently")
	addIntFlag(rateLimit, &cfg.RateLimit, "rl", "rate-limit", 10, "Requests per second per host")
	addDurationFlag(rateLimit, &cfg.RateLimitTimeout, "", "rate-limit-timeout", 60*time.Second, "Rate limit wait timeout")
	formatter.Groups = append(formatter.Groups, rateLimit)

	// SERVER
	server := &FlagGroup{Name: "SERVER"}
	addStringFlag(server, &cfg.ListenAddr, "l", "listen", "", "Serve POST /v1/check on this address instead of reading input")
	formatter.Groups = append(formatter.Groups, server)

	// DEBUG
	debug := &FlagGroup{Name: "DEBUG"}
	addBoolFlag(debug, &cfg.Debug, "d", "debug", false, "Debug mode (log every hop)")
	addBoolFlag(debug, &cfg.Silent, "", "silent", false, "Silent mode (errors only)")
	addStringFlag(debug, &cfg.DebugLogFile, "", "debug-log", "", "Write detailed debug logs to file")
	formatter.Groups = append(formatter.Groups, debug)

	// MISCELLANEOUS
	misc := &FlagGroup{Name: "MISCELLANEOUS"}
	addBoolFlag(misc, &cfg.Version, "v", "version", false, "Show version information")
	formatter.Groups = append(formatter.Groups, misc)

	return formatter
}

// PrintUsage writes the grouped help output to w
func (h *HelpFormatter) PrintUsage(w io.Writer) {
	fmt.Fprintf(w, "%s - %s\n\n", h.ToolName, h.Description)
	fmt.Fprintf(w, "Usage:\n  %s [flags]\n\nFlags:\n", h.ToolName)

	for _, group := range h.Groups {
		fmt.Fprintf(w, "\n%s:\n", group.Name)

		tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
		for _, f := range group.Flags {
			name := formatFlagName(f)
			typeSuffix := formatFlagType(f)
			defaultStr := formatFlagDefault(f)

			desc := f.Description
			if defaultStr != "" {
				desc += " " + defaultStr
			}

			fmt.Fprintf(tw, "   %s%s\t%s\n", name, typeSuffix, desc)
		}
		tw.Flush()
	}
}

// formatFlagName builds the "-short, -long" or just "-long" name string
func formatFlagName(f FlagDef) string {
	if f.Short != "" && f.Long != "" {
		return fmt.Sprintf("-%s, -%s", f.Short, f.Long)
	}
	if f.Short != "" {
		return fmt.Sprintf("-%s", f.Short)
	}
	return fmt.Sprintf("-%s", f.Long)
}

// formatFlagType returns the type suffix for non-bool flags
func formatFlagType(f FlagDef) string {
	switch f.Type {
	case StringType:
		return " string"
	case IntType, Int64Type:
		return " int"
	case DurationType:
		return " duration"
	default:
		return ""
	}
}

// formatFlagDefault returns a parenthesized default value string for non-zero defaults
func formatFlagDefault(f FlagDef) string {
	switch f.Type {
	case BoolType:
		if v, ok := f.Default.(bool); ok && v {
			return "(default true)"
		}
	case IntType:
		if v, ok := f.Default.(int); ok && v != 0 {
			return fmt.Sprintf("(default %d)", v)
		}
	case Int64Type:
		if v, ok := f.Default.(int64); ok && v != 0 {
			return fmt.Sprintf("(default %d)", v)
		}
	case DurationType:
		if v, ok := f.Default.(time.Duration); ok && v != 0 {
			return fmt.Sprintf("(default %s)", v)
		}
	case StringType:
		if v, ok := f.Default.(string); ok && v != "" {
			return fmt.Sprintf("(default %q)", v)
		}
	}
	return ""
}
