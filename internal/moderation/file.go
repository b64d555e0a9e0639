package moderation

import (
	"fmt"
	"strings"
)

// Size bounds and heuristic thresholds for image attachments.
const (
	MinFileSize = 1 * 1024        // below this: too small / corrupt
	MaxFileSize = 5 * 1024 * 1024 // per-message limit

	oversizedThreshold = 4 * 1024 * 1024
	gifSizeThreshold   = 3 * 1024 * 1024
	pngSizeThreshold   = 2560 * 1024 // 2.5 MiB
	jpegSizeThreshold  = 3 * 1024 * 1024
	suspectBandLow     = 1536 * 1024 // 1.5 MiB
	suspectBandHigh    = 2560 * 1024 // 2.5 MiB

	maxHeuristicConfidence = 85
)

// matchFileNameTerms blocks filenames containing an explicit term outright.
func matchFileNameTerms(f FileMeta) (FileResult, bool) {
	lower := strings.ToLower(f.FileName)
	for _, term := range fileNameTerms {
		if strings.Contains(lower, term) {
			return FileResult{
				Blocked:    true,
				Reason:     "filename contains inappropriate term",
				Confidence: 95,
			}, true
		}
	}
	return FileResult{}, false
}

// matchSizeBounds rejects files outside the accepted size window.
func matchSizeBounds(f FileMeta) (FileResult, bool) {
	if f.SizeBytes < MinFileSize {
		return FileResult{
			Blocked:    true,
			Reason:     "file too small, possibly corrupt",
			Confidence: 80,
		}, true
	}
	if f.SizeBytes > MaxFileSize {
		return FileResult{
			Blocked:    true,
			Reason:     fmt.Sprintf("file exceeds the %d MB limit", MaxFileSize/(1024*1024)),
			Confidence: 80,
		}, true
	}
	return FileResult{}, false
}

// scoreFileHeuristics counts suspicious characteristics and independently
// checks name patterns and MIME/size combinations. Blocks on two or more
// characteristics, any name pattern, or any combination.
func scoreFileHeuristics(f FileMeta) (FileResult, bool) {
	ct := strings.ToLower(f.ContentType)

	var count int
	if f.SizeBytes > oversizedThreshold {
		count++
	}
	if ct == "image/gif" && f.SizeBytes > gifSizeThreshold {
		count++
	}
	if f.SizeBytes >= suspectBandLow && f.SizeBytes <= suspectBandHigh {
		count++
	}
	if ct == "image/png" && f.SizeBytes > pngSizeThreshold {
		count++
	}
	if (ct == "image/jpeg" || ct == "image/jpg") && f.SizeBytes > jpegSizeThreshold {
		count++
	}

	patternMatched := hasRepeatedRun(f.FileName, 6)
	if !patternMatched {
		for _, p := range suspiciousNamePatterns {
			if p.MatchString(f.FileName) {
				patternMatched = true
				break
			}
		}
	}

	// MIME/size combinations that never occur in legitimate uploads.
	comboMatched := (ct == "" || ct == "application/octet-stream") && f.SizeBytes > suspectBandLow

	if count < 2 && !patternMatched && !comboMatched {
		return FileResult{}, false
	}

	confidence := count * 20
	if patternMatched {
		confidence += 30
	}
	if confidence > maxHeuristicConfidence {
		confidence = maxHeuristicConfidence
	}
	return FileResult{
		Blocked:    true,
		Reason:     "file flagged as suspicious",
		Confidence: confidence,
	}, true
}
