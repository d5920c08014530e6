package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// Subsystem magics understood by wrtctld modules.
const (
	SubsystemUCI    = "UCI"
	SubsystemSys    = "SYS"
	SubsystemDaemon = "DAE"
)

// Command ids per subsystem.
const (
	UCICmdSet    uint16 = 1
	UCICmdGet    uint16 = 2
	UCICmdCommit uint16 = 3
	UCICmdRevert uint16 = 4

	SysCmdInitd uint16 = 1
	SysCmdFWVer uint16 = 2

	DaemonCmdPing     uint16 = 1
	DaemonCmdShutdown uint16 = 2
)

var subsystemAliases = map[string]string{
	"uci":    SubsystemUCI,
	"sys":    SubsystemSys,
	"system": SubsystemSys,
	"dae":    SubsystemDaemon,
	"daemon": SubsystemDaemon,
}

var commandNames = map[string]map[string]uint16{
	SubsystemUCI: {
		"set":    UCICmdSet,
		"get":    UCICmdGet,
		"commit": UCICmdCommit,
		"revert": UCICmdRevert,
	},
	SubsystemSys: {
		"initd": SysCmdInitd,
		"fwver": SysCmdFWVer,
	},
	SubsystemDaemon: {
		"ping":     DaemonCmdPing,
		"shutdown": DaemonCmdShutdown,
	},
}

// ParseLine turns a text command of the form
//
//	<subsystem> <command|id> [value...]
//
// into a Command, e.g. "uci get network.lan.ipaddr" or "sys initd network restart".
// Unknown subsystems are passed through verbatim and require a numeric id.
func ParseLine(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Command{}, fmt.Errorf("expected '<subsystem> <command> [value]', got %q", line)
	}

	subsystem := fields[0]
	if magic, ok := subsystemAliases[strings.ToLower(subsystem)]; ok {
		subsystem = magic
	}

	id, err := commandID(subsystem, fields[1])
	if err != nil {
		return Command{}, err
	}

	return Command{
		ID:        id,
		Subsystem: subsystem,
		Value:     strings.Join(fields[2:], " "),
	}, nil
}

func commandID(subsystem, name string) (uint16, error) {
	if id, ok := commandNames[subsystem][strings.ToLower(name)]; ok {
		return id, nil
	}
	n, err := strconv.ParseUint(name, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("unknown command %q for subsystem %s", name, subsystem)
	}
	return uint16(n), nil
}
