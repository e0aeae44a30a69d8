package vm

// ErrorCode is a device error reported to the host in taskError
// messages. The numeric values are part of the wire contract and are
// stable across versions; never renumber.
type ErrorCode byte

const (
	NoError                  ErrorCode = 0
	UnspecifiedError         ErrorCode = 1
	BadChunkIndexError       ErrorCode = 2
	InsufficientMemoryError  ErrorCode = 10
	NeedsArrayError          ErrorCode = 11
	NeedsBooleanError        ErrorCode = 12
	NeedsIntegerError        ErrorCode = 13
	NeedsStringError         ErrorCode = 14
	NonComparableError       ErrorCode = 15
	ArraySizeError           ErrorCode = 16
	NeedsIntegerIndexError   ErrorCode = 17
	IndexOutOfRangeError     ErrorCode = 18
	ByteArrayStoreError      ErrorCode = 19
	HexRangeError            ErrorCode = 20
	I2CDeviceIDOutOfRange    ErrorCode = 21
	I2CRegisterIDOutOfRange  ErrorCode = 22
	I2CValueOutOfRange       ErrorCode = 23
	NotInFunction            ErrorCode = 24
	BadForLoopArg            ErrorCode = 25
	StackOverflow            ErrorCode = 26
	NotEnoughArguments       ErrorCode = 27
	JoinArgsNotSameTypeError ErrorCode = 28
	NeedsIndexableError      ErrorCode = 29
)

var errorNames = map[ErrorCode]string{
	NoError:                  "noError",
	UnspecifiedError:         "unspecifiedError",
	BadChunkIndexError:       "badChunkIndexError",
	InsufficientMemoryError:  "insufficientMemoryError",
	NeedsArrayError:          "needsArrayError",
	NeedsBooleanError:        "needsBooleanError",
	NeedsIntegerError:        "needsIntegerError",
	NeedsStringError:         "needsStringError",
	NonComparableError:       "nonComparableError",
	ArraySizeError:           "arraySizeError",
	NeedsIntegerIndexError:   "needsIntegerIndexError",
	IndexOutOfRangeError:     "indexOutOfRangeError",
	ByteArrayStoreError:      "byteArrayStoreError",
	HexRangeError:            "hexRangeError",
	I2CDeviceIDOutOfRange:    "i2cDeviceIDOutOfRange",
	I2CRegisterIDOutOfRange:  "i2cRegisterIDOutOfRange",
	I2CValueOutOfRange:       "i2cValueOutOfRange",
	NotInFunction:            "notInFunction",
	BadForLoopArg:            "badForLoopArg",
	StackOverflow:            "stackOverflow",
	NotEnoughArguments:       "notEnoughArguments",
	JoinArgsNotSameTypeError: "joinArgsNotSameType",
	NeedsIndexableError:      "needsIndexable",
}

// String returns the canonical error name.
func (e ErrorCode) String() string {
	if s, ok := errorNames[e]; ok {
		return s
	}
	return "unknownError"
}
