package payload

// OrderSnapshotKey is dropped from incoming documents so an order never stores a
// copy of itself inside its own metadata.
const OrderSnapshotKey = "order"

// Merge folds incoming into existing and returns the result. Nested objects
// present on both sides are merged recursively while the depth stays below
// maxDepth; anything else in incoming replaces the existing value wholesale.
// Top level keys are always merged, so a maxDepth below 1 acts as 1.
// Neither input is modified.
func Merge(existing, incoming *Object, maxDepth int) *Object {
	if maxDepth < 1 {
		maxDepth = 1
	}
	src := incoming.Clone()
	src.Delete(OrderSnapshotKey)
	return mergeObjects(existing.Clone(), src, maxDepth, 0)
}

func mergeObjects(dst, src *Object, maxDepth, depth int) *Object {
	if depth >= maxDepth {
		return src
	}

	for _, key := range src.keys {
		incoming := src.values[key]
		if current, ok := dst.values[key]; ok {
			currentObj, currentIsObj := current.AsObject()
			incomingObj, incomingIsObj := incoming.AsObject()
			if currentIsObj && incomingIsObj {
				dst.Set(key, ObjectValue(mergeObjects(currentObj, incomingObj, maxDepth, depth+1)))
				continue
			}
		}
		dst.Set(key, incoming)
	}
	return dst
}
