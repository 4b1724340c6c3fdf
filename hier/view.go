package hier

import "github.com/scisig/zspy/signal"

// persistedMetadata builds the on-disk view of a signal's metadata tree.
// The legacy record_by marker is derived from the signal dimension and
// added to a copied Signal submap; the caller's maps are never touched.
func persistedMetadata(sig *signal.Signal) map[string]any {
	view := make(map[string]any, len(sig.Metadata)+1)
	for k, v := range sig.Metadata {
		view[k] = v
	}

	smd := map[string]any{}
	if existing, ok := view["Signal"].(map[string]any); ok {
		for k, v := range existing {
			smd[k] = v
		}
	}
	smd["record_by"] = recordBy(sig.SignalDimension())
	view["Signal"] = smd

	return view
}

// recordBy maps a signal dimension to the legacy record_by marker older
// readers expect.
func recordBy(signalDimension int) string {
	switch signalDimension {
	case 1:
		return "spectrum"
	case 2:
		return "image"
	default:
		return ""
	}
}

// stripRecordBy removes the legacy marker from a reloaded metadata tree
// so the payload mirrors what the caller originally saved.
func stripRecordBy(metadata map[string]any) {
	if smd, ok := metadata["Signal"].(map[string]any); ok {
		delete(smd, "record_by")
	}
}
