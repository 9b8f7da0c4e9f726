package inflate

const (
	maxBits     = 15  // longest code, in bits
	maxLitCodes = 286 // literal/length codes a dynamic block may declare
	maxDstCodes = 30  // distance codes a dynamic block may declare
	maxCodes    = maxLitCodes + maxDstCodes
	numCLCodes  = 19 // code-length alphabet size

	endOfBlock = 256

	btypeStored  = 0
	btypeFixed   = 1
	btypeDynamic = 2

	methodDeflate = 8
	maxWindowInfo = 7
)

// Base lengths and extra bits for length codes 257..285.
var (
	lens = [29]uint16{
		3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31,
		35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258,
	}
	lext = [29]uint8{
		0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2,
		3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0,
	}
)

// Base distances and extra bits for distance codes 0..29.
var (
	dists = [30]uint16{
		1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193,
		257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145,
		8193, 12289, 16385, 24577,
	}
	dext = [30]uint8{
		0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6,
		7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13,
	}
)

// Order in which code-length code lengths are transmitted.
var clOrder = [numCLCodes]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}
