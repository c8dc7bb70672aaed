package vp8l

// Backward-reference generation: the RLE fallback, the greedy
// hash-chain matcher, and the two-pass cost-model planner.

// pushBackCopies emits a run of identical pixels as distance-1 copies,
// chunked at MaxLength.
func pushBackCopies(refs *Refs, length int) {
	for length >= MaxLength {
		refs.Add(Copy(1, MaxLength))
		length -= MaxLength
	}
	if length > 0 {
		refs.Add(Copy(1, length))
	}
}

// BackwardReferencesRle encodes runs of identical pixels only.
func BackwardReferencesRle(xsize, ysize int, argb []uint32, refs *Refs) {
	pixCount := xsize * ysize
	refs.Reset()
	streak := 0
	for i := 0; i < pixCount; i++ {
		if i >= 1 && argb[i] == argb[i-1] {
			streak++
		} else {
			pushBackCopies(refs, streak)
			streak = 0
			refs.Add(Literal(argb[i]))
		}
	}
	pushBackCopies(refs, streak)
}

// addLiteral emits pixel i as a cache hit when possible, else as a
// literal, and inserts it into the cache.
func addLiteral(refs *Refs, cc *ColorCache, pix uint32) {
	if cc != nil {
		if idx, ok := cc.Contains(pix); ok {
			refs.Add(CacheIdx(idx))
		} else {
			refs.Add(Literal(pix))
		}
		cc.Insert(pix)
	} else {
		refs.Add(Literal(pix))
	}
}

// BackwardReferencesHashChain is the greedy matcher. At each position
// it takes the chain's best copy, with a one-pixel lookahead: when a
// literal followed by the copy at i+1 beats the copy at i, the literal
// wins. Every covered pixel feeds both the chain and the cache.
func BackwardReferencesHashChain(xsize, ysize int, argb []uint32, cacheBits, quality int, refs *Refs) {
	pixCount := xsize * ysize
	refs.Reset()
	hc := NewHashChain(pixCount)
	var cc *ColorCache
	if cacheBits > 0 {
		cc = NewColorCache(cacheBits)
	}

	for i := 0; i < pixCount; {
		var offset, length int
		var found bool
		if i < pixCount-1 { // FindCopy reads pixels [i] and [i+1]
			maxLen := pixCount - i
			if maxLen > MaxLength {
				maxLen = MaxLength
			}
			offset, length, found = hc.FindCopy(quality, i, xsize, argb, maxLen)
		}
		if found {
			// Lookahead: compare against a literal plus the copy at i+1.
			hc.Insert(argb[i:], i)
			if i < pixCount-2 {
				maxLen := pixCount - (i + 1)
				if maxLen > MaxLength {
					maxLen = MaxLength
				}
				offset2, length2, _ := hc.FindCopy(quality, i+1, xsize, argb, maxLen)
				if length2 > length+1 {
					addLiteral(refs, cc, argb[i])
					i++
					length = length2
					offset = offset2
				}
			}
			if length >= MaxLength {
				length = MaxLength - 1
			}
			refs.Add(Copy(offset, length))
			for k := 0; k < length; k++ {
				if cc != nil {
					cc.Insert(argb[i+k])
				}
				if k != 0 && i+k+1 < pixCount {
					// The chain cannot index the final pixel.
					hc.Insert(argb[i+k:], i+k)
				}
			}
			i += length
		} else {
			addLiteral(refs, cc, argb[i])
			if i+1 < pixCount {
				hc.Insert(argb[i:], i)
			}
			i++
		}
	}
}

// ---------------------------------------------------------------------------
// Cost model
// ---------------------------------------------------------------------------

// costModel converts first-pass statistics into per-symbol bit costs.
type costModel struct {
	alpha    [256]float64
	red      [256]float64
	blue     [256]float64
	distance [NumDistanceCodes]float64
	literal  []float64 // green + length codes + cache indices
}

// build trains the model on a trace of the image: a greedy pass at
// recursion level 0, or one more planner level above that.
func (cm *costModel) build(xsize, ysize, recursionLevel int, argb []uint32, cacheBits int) {
	refs := NewRefs(xsize * ysize)
	if recursionLevel > 0 {
		BackwardReferencesTraceBackwards(xsize, ysize, recursionLevel-1, argb, cacheBits, refs)
	} else {
		const quality = 100
		BackwardReferencesHashChain(xsize, ysize, argb, cacheBits, quality, refs)
	}
	histo := NewHistogram(cacheBits)
	histo.AddRefs(refs)

	cm.literal = make([]float64, NumCodes(cacheBits))
	convertCountsToBitEstimates(histo.Literal, cm.literal)
	convertCountsToBitEstimates(histo.Red[:], cm.red[:])
	convertCountsToBitEstimates(histo.Blue[:], cm.blue[:])
	convertCountsToBitEstimates(histo.Alpha[:], cm.alpha[:])
	convertCountsToBitEstimates(histo.Distance[:], cm.distance[:])
}

func (cm *costModel) literalCost(v uint32) float64 {
	return cm.alpha[v>>24&0xff] + cm.red[v>>16&0xff] +
		cm.literal[v>>8&0xff] + cm.blue[v&0xff]
}

func (cm *costModel) cacheCost(idx int) float64 {
	return cm.literal[NumLiteralCodes+NumLengthCodes+idx]
}

func (cm *costModel) lengthCost(length int) float64 {
	code, extraBits, _ := PrefixEncode(length)
	return cm.literal[NumLiteralCodes+code] + float64(extraBits)
}

func (cm *costModel) distanceCost(distance int) float64 {
	code, extraBits, _ := PrefixEncode(distance)
	return cm.distance[code] + float64(extraBits)
}

// ---------------------------------------------------------------------------
// Planner
// ---------------------------------------------------------------------------

const maxCost = 1e38

// plannerDistanceOnly runs the forward DP: cost[i] is the cheapest way
// to reach pixel i, distArray[i] the hop that achieves it (1 = literal,
// h > 1 = copy of h pixels ending at i). At each position both a short
// probe (length <= 2) and a full-length probe are evaluated.
func plannerDistanceOnly(xsize, ysize, recursionLevel int, argb []uint32, cacheBits int, distArray []uint32) {
	const quality = 100
	pixCount := xsize * ysize
	useCache := cacheBits > 0

	cost := make([]float64, pixCount)
	for i := range cost {
		cost[i] = maxCost
	}
	cm := new(costModel)
	cm.build(xsize, ysize, recursionLevel, argb, cacheBits)

	hc := NewHashChain(pixCount)
	var cc *ColorCache
	if useCache {
		cc = NewColorCache(cacheBits)
	}

	distArray[0] = 0
	for i := 0; i < pixCount; i++ {
		prevCost := 0.0
		if i > 0 {
			prevCost = cost[i-1]
		}
		skipped := false
		for shortmax := 0; shortmax < 2 && !skipped; shortmax++ {
			var offset, length int
			var found bool
			if i < pixCount-1 {
				maxLen := MaxLength
				if shortmax != 0 {
					maxLen = 2
				}
				if maxLen > pixCount-i {
					maxLen = pixCount - i
				}
				offset, length, found = hc.FindCopy(quality, i, xsize, argb, maxLen)
			}
			if found {
				code := DistanceToPlaneCode(xsize, offset)
				distanceCost := prevCost + cm.distanceCost(code)
				for k := 1; k < length; k++ {
					costVal := distanceCost + cm.lengthCost(k)
					if cost[i+k] > costVal {
						cost[i+k] = costVal
						distArray[i+k] = uint32(k + 1)
					}
				}
				// Long copies at tiny plane codes: skip the interior
				// probes. Roughly doubles throughput for a density loss
				// under 0.1%.
				if length >= 128 && code < 2 {
					for k := 0; k < length; k++ {
						if cc != nil {
							cc.Insert(argb[i+k])
						}
						if i+k+1 < pixCount {
							hc.Insert(argb[i+k:], i+k)
						}
					}
					i += length - 1 // incremented again by the loop
					skipped = true
				}
			}
		}
		if skipped {
			continue
		}
		if i < pixCount-1 {
			hc.Insert(argb[i:], i)
		}
		// Literal (or cache hit) at i. The sub-unit multipliers bias the
		// first planner level toward copies; refinement levels use the
		// plain costs.
		costVal := prevCost
		mulCache, mulLiteral := 1.0, 1.0
		if recursionLevel == 0 {
			mulCache, mulLiteral = 0.68, 0.82
		}
		hit := -1
		if useCache {
			if idx, ok := cc.Contains(argb[i]); ok {
				hit = idx
			}
		}
		if hit >= 0 {
			costVal += cm.cacheCost(hit) * mulCache
		} else {
			costVal += cm.literalCost(argb[i]) * mulLiteral
		}
		if cost[i] > costVal {
			cost[i] = costVal
			distArray[i] = 1
		}
		if cc != nil {
			cc.Insert(argb[i])
		}
	}
}

// traceBackwards recovers the chosen hop sequence from the back
// pointers, front to back.
func traceBackwards(distArray []uint32) []uint32 {
	count := 0
	for i := len(distArray) - 1; i >= 0; i -= int(distArray[i]) {
		count++
	}
	path := make([]uint32, count)
	for i := len(distArray) - 1; i >= 0; i -= int(distArray[i]) {
		count--
		path[count] = distArray[i]
	}
	return path
}

// followChosenPath replays the picked hops, re-running the matcher so
// the emitted copies, chain and cache all agree with the plan.
func followChosenPath(xsize, ysize int, argb []uint32, cacheBits int, path []uint32, refs *Refs) {
	const quality = 100
	pixCount := xsize * ysize
	useCache := cacheBits > 0
	hc := NewHashChain(pixCount)
	var cc *ColorCache
	if useCache {
		cc = NewColorCache(cacheBits)
	}
	refs.Reset()

	i := 0
	for _, hop := range path {
		maxLen := int(hop)
		if maxLen != 1 {
			offset, length, _ := hc.FindCopy(quality, i, xsize, argb, maxLen)
			refs.Add(Copy(offset, length))
			for k := 0; k < length; k++ {
				if cc != nil {
					cc.Insert(argb[i+k])
				}
				if i+k+1 < pixCount {
					hc.Insert(argb[i+k:], i+k)
				}
			}
			i += length
		} else {
			addLiteral(refs, cc, argb[i])
			if i+1 < pixCount {
				hc.Insert(argb[i:], i)
			}
			i++
		}
	}
}

// BackwardReferencesTraceBackwards runs the cost-model planner: train a
// model, solve the per-pixel DP, trace the optimal path and emit it.
func BackwardReferencesTraceBackwards(xsize, ysize, recursionLevel int, argb []uint32, cacheBits int, refs *Refs) {
	distArray := make([]uint32, xsize*ysize)
	plannerDistanceOnly(xsize, ysize, recursionLevel, argb, cacheBits, distArray)
	path := traceBackwards(distArray)
	followChosenPath(xsize, ysize, argb, cacheBits, path, refs)
}

// Apply2DLocality rewrites copy distances into plane codes. Run once,
// after the strategy is final and before entropy coding.
func Apply2DLocality(xsize int, refs *Refs) {
	for i := range refs.tokens {
		if refs.tokens[i].IsCopy() {
			refs.tokens[i].val =
				uint32(DistanceToPlaneCode(xsize, int(refs.tokens[i].val)))
		}
	}
}

// GetBackwardReferences produces the final token stream: the greedy and
// RLE candidates compete on estimated coded size, at sufficient quality
// the planner's own path replaces the winner when it is cheaper, and
// distances become plane codes.
func GetBackwardReferences(xsize, ysize int, argb []uint32, quality, cacheBits int, refs *Refs) {
	pixCount := xsize * ysize

	candidate := NewRefs(pixCount)
	BackwardReferencesHashChain(xsize, ysize, argb, cacheBits, quality, refs)
	histo := NewHistogram(cacheBits)
	histo.AddRefs(refs)
	bestCost := histo.EstimateBits()

	BackwardReferencesRle(xsize, ysize, argb, candidate)
	histo.Clear()
	histo.AddRefs(candidate)
	if cost := histo.EstimateBits(); cost < bestCost {
		bestCost = cost
		candidate.CopyTo(refs)
	}

	if quality >= 25 {
		BackwardReferencesTraceBackwards(xsize, ysize, 0, argb, cacheBits, candidate)
		histo.Clear()
		histo.AddRefs(candidate)
		if cost := histo.EstimateBits(); cost < bestCost {
			candidate.CopyTo(refs)
		}
	}

	Apply2DLocality(xsize, refs)
}
