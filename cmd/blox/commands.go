package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"blox/host"
	"blox/manifest"
	"blox/wire"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports that look like attached boards",
	Run: func(cmd *cobra.Command, args []string) {
		ports := host.ListPorts()
		if len(ports) == 0 {
			fmt.Println("no boards found")
			return
		}
		for _, p := range ports {
			fmt.Println(p.Name)
		}
	},
}

// loadManifest applies blox.toml when present.
func loadManifest() *manifest.Manifest {
	m, err := manifest.FindAndLoad(".")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return m
}

// resolvePort picks the port flag, the manifest port, or the sole
// detected board, in that order.
func resolvePort(flagPort string) string {
	if flagPort != "" {
		return flagPort
	}
	if m := loadManifest(); m != nil && m.Serial.Port != "" {
		return m.Serial.Port
	}
	ports := host.ListPorts()
	if len(ports) == 1 {
		return ports[0].Name
	}
	fmt.Fprintln(os.Stderr, "no port given and no single board detected (try: blox ports)")
	os.Exit(1)
	return ""
}

// connectTo opens the port and wires hooks that print device events.
func connectTo(port string) *host.Connection {
	f, err := host.OpenPort(port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening %s: %v\n", port, err)
		os.Exit(1)
	}
	return host.Connect(f, printHooks())
}

func printHooks() host.Hooks {
	return host.Hooks{
		TaskStarted: func(id byte) { fmt.Printf("chunk %d: started\n", id) },
		TaskDone:    func(id byte) { fmt.Printf("chunk %d: done\n", id) },
		TaskReturned: func(id byte, v wire.TypedValue) {
			fmt.Printf("chunk %d: %s\n", id, formatValue(v))
		},
		TaskError: func(id byte, code byte) {
			fmt.Printf("chunk %d: error %d\n", id, code)
		},
		OutputValue: func(id byte, v wire.TypedValue) {
			fmt.Println(formatValue(v))
		},
		VarValue: func(i byte, v wire.TypedValue) {
			fmt.Printf("var %d = %s\n", i, formatValue(v))
		},
		Broadcast: func(s string) { fmt.Printf("broadcast: %s\n", s) },
		Version:   func(s string) { fmt.Printf("device: %s\n", s) },
	}
}

func formatValue(v wire.TypedValue) string {
	switch v.Kind {
	case wire.IntKind:
		return fmt.Sprintf("%d", v.Int)
	case wire.StringKind:
		return v.Str
	case wire.BooleanKind:
		return fmt.Sprintf("%t", v.Bool)
	case wire.ByteArrayKind:
		return fmt.Sprintf("% x", v.Bytes)
	}
	return "?"
}

var monitorPort string

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Connect to a board and print device events",
	Run: func(cmd *cobra.Command, args []string) {
		conn := connectTo(resolvePort(monitorPort))
		defer conn.Close()
		conn.GetVersion()

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt)
		status := conn.Status()
		fmt.Printf("status: %s\n", status)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-interrupt:
				return
			case <-ticker.C:
				if s := conn.Status(); s != status {
					status = s
					fmt.Printf("status: %s\n", status)
				}
			}
		}
	},
}

var (
	uploadPort string
	uploadRun  bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload <bytecode-file>",
	Short: "Upload a compiled chunk to the board",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		code, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		conn := connectTo(resolvePort(uploadPort))
		defer conn.Close()

		id, err := conn.SaveBlock(args[0], wire.ChunkCommand, code)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("uploaded as chunk %d\n", id)
		if uploadRun {
			if err := conn.StartChunk(id); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			// give the board a moment to report task state
			time.Sleep(500 * time.Millisecond)
		}
	},
}

func init() {
	monitorCmd.Flags().StringVarP(&monitorPort, "port", "p", "", "serial port")
	uploadCmd.Flags().StringVarP(&uploadPort, "port", "p", "", "serial port")
	uploadCmd.Flags().BoolVar(&uploadRun, "run", false, "start the chunk after upload")
}
