package vp8l

// HashChain indexes pixel positions by the hash of their leading pixel
// pair so the matcher can walk candidate positions newest-first.

const (
	hashBits = 18
	hashSize = 1 << hashBits

	// windowSize bounds how far back a match may reach.
	windowSize = 1<<20 - CodeCount
)

const hashMultiplier = 0xc6a4a7935bd1e995

// pixPair packs two consecutive ARGB pixels into one 64-bit word.
func pixPair(argb []uint32) uint64 {
	return uint64(argb[1])<<32 | uint64(argb[0])
}

func hashPair(pair uint64) uint32 {
	return uint32((pair * hashMultiplier) >> (64 - hashBits))
}

// HashChain holds, per bucket, the most recent position with that
// 2-pixel hash, and per position, the previous position in the bucket.
// Chain entries strictly decrease along traversal.
type HashChain struct {
	hashToFirst []int32
	chain       []int32
}

// NewHashChain creates a chain for pixCount pixels.
func NewHashChain(pixCount int) *HashChain {
	hc := &HashChain{
		hashToFirst: make([]int32, hashSize),
		chain:       make([]int32, pixCount),
	}
	for i := range hc.hashToFirst {
		hc.hashToFirst[i] = -1
	}
	for i := range hc.chain {
		hc.chain[i] = -1
	}
	return hc
}

// Insert records position pos, whose pixel pair starts at argb.
func (hc *HashChain) Insert(argb []uint32, pos int) {
	h := hashPair(pixPair(argb))
	hc.chain[pos] = hc.hashToFirst[h]
	hc.hashToFirst[h] = int32(pos)
}

// findMatchLength counts how many leading pixels of a and b agree, up
// to maxLen.
func findMatchLength(a, b []uint32, maxLen int) int {
	n := 0
	for n < maxLen && a[n] == b[n] {
		n++
	}
	return n
}

// FindCopy searches the chain for the best match at index. Longer
// matches win, biased toward 2-D locality: within nine scanlines a
// candidate's score is 65536*length - dx*dx - dy*dy, and anything
// farther pays the maximal spatial penalty. The probe budget shrinks
// with quality; a good-enough score stops the search early.
//
// Returns (offset, length, ok) with ok set when length >= MinLength.
func (hc *HashChain) FindCopy(quality, index, xsize int, argb []uint32, maxLen int) (int, int, bool) {
	h := hashPair(pixPair(argb[index:]))
	giveUp := quality*3/4 + 25
	minPos := 0
	if index > windowSize {
		minPos = index - windowSize
	}

	var (
		bestVal    int64
		bestLen    int
		bestOffset int
		prevLen    int
	)
	for pos := hc.hashToFirst[h]; int(pos) >= minPos; pos = hc.chain[pos] {
		if giveUp < 0 {
			if giveUp < -quality*8 || bestVal >= 0xff0000 {
				break
			}
		}
		giveUp--

		if bestLen != 0 && argb[int(pos)+bestLen-1] != argb[index+bestLen-1] {
			continue
		}
		length := findMatchLength(argb[pos:], argb[index:], maxLen)
		if length < prevLen {
			continue
		}
		val := int64(65536 * length)
		// Favor spatially close matches.
		if dist := index - int(pos); dist < 9*xsize {
			y := dist / xsize
			x := dist % xsize
			if x > xsize/2 {
				x = xsize - x
			}
			if x <= 7 && x >= -8 {
				val -= int64(y*y + x*x)
			} else {
				val -= 9*9 + 9*9
			}
		} else {
			val -= 9*9 + 9*9
		}
		if bestVal < val {
			prevLen = length
			bestVal = val
			bestLen = length
			bestOffset = index - int(pos)
			if length >= MaxLength {
				break
			}
			if (bestOffset == 1 || bestOffset == xsize) && bestLen >= 128 {
				break
			}
		}
	}
	return bestOffset, bestLen, bestLen >= MinLength
}
