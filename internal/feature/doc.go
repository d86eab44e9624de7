// Package feature provides typed façades over one slice of store state.
//
// A FeatureStore registers its slice in a shared engine.Store; a
// ComponentStore owns a private engine.Store. Both update their slice only
// through scoped set-state actions carrying their instance id, so sibling
// instances with the same reducer never react to each other's updates.
package feature
