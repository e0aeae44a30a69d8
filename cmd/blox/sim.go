package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"blox/device"
	"blox/host"
	"blox/manifest"
	"blox/radio"
	"blox/vm"
	"blox/wire"
)

// simTransport is the host end of an in-process serial link: writes
// feed the device, reads drain the device's replies.
type simTransport struct {
	dev *device.Device
	in  *io.PipeReader
}

func (t *simTransport) Write(p []byte) (int, error) {
	t.dev.Feed(p)
	return len(p), nil
}

func (t *simTransport) Read(p []byte) (int, error) { return t.in.Read(p) }
func (t *simTransport) Close() error               { return t.in.Close() }

// demoRunner stands in for the bytecode interpreter: every chunk
// builds a list with the data primitives and returns its items joined
// with spaces.
type demoRunner struct{}

func (demoRunner) Run(v *vm.VM, chunkID byte, chunk *device.Chunk, task *vm.Task) vm.Value {
	list := v.CallPrimitive("data", "makeList", []vm.Value{
		vm.FromInt(1), vm.FromInt(2), vm.FromInt(3),
	})
	args := []vm.Value{vm.FromInt(4), list}
	v.CallPrimitive("data", "addLast", args)
	list = args[1]
	if v.Failure() {
		return vm.Nil
	}
	sep := v.Mem.NewString(" ")
	return v.CallPrimitive("data", "joinStrings", []vm.Value{list, sep})
}

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Run a simulated board pair and exercise the whole stack",
	Long:  "Starts two simulated devices sharing a radio medium, connects the host to one of them, uploads a demo chunk, runs it, and relays a radio message between the boards.",
	Run: func(cmd *cobra.Command, args []string) {
		arenaWords := manifest.DefaultArenaWords
		if m := loadManifest(); m != nil {
			arenaWords = m.VM.ArenaWords
		}

		medium := radio.NewMedium()

		// board A is on the serial link; board B only listens on radio
		outR, outW := io.Pipe()
		devA := device.New(arenaWords, version, medium, 0xA11CE, outW, demoRunner{})
		devB := device.New(arenaWords, version, medium, 0xB0B, io.Discard, demoRunner{})
		devB.Radio.SetGroup(0)

		conn := host.Connect(&simTransport{dev: devA, in: outR}, printHooks())
		defer conn.Close()

		conn.GetVersion()

		id, err := conn.SaveBlock("demo", wire.ChunkReporter, []byte{0x01})
		if err != nil {
			fmt.Println(err)
			return
		}
		conn.StartChunk(id)

		// radio hop: board A broadcasts, board B picks it up
		devA.VM.BeginTask(&vm.Task{})
		s := devA.VM.Mem.NewString("hi")
		devA.VM.CallPrimitive("radio", "sendString", []vm.Value{s})

		devB.VM.BeginTask(&vm.Task{})
		if devB.VM.CallPrimitive("radio", "messageReceived", nil) == vm.True {
			got := devB.VM.CallPrimitive("radio", "receivedString", nil)
			rssi := devB.VM.CallPrimitive("radio", "signalStrength", nil)
			fmt.Printf("board B received %q (rssi %d)\n", devB.VM.Mem.ObjString(got), rssi.Int())
		}

		// let the read loop drain the device's replies
		time.Sleep(200 * time.Millisecond)
		fmt.Printf("status: %s\n", conn.Status())
	},
}
