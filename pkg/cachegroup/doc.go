// Package cachegroup decides which modules are pulled out of their entry's
// chunk into named shared chunks.
//
// A cache group is a [Rule]: a name, a target chunk and a [Predicate]. Rules
// are plain data so they can be loaded from configuration; a predicate is a
// tagged variant evaluated by a single switch in [Match]. Supported kinds are
// path-prefix, path-segment, path-pattern, asset-kind and issuer-entry,
// combined with all and any:
//
//	rules := []cachegroup.Rule{
//	    {Name: "appStyles", Test: cachegroup.Predicate{Kind: cachegroup.All, All: []cachegroup.Predicate{
//	        {Kind: cachegroup.AssetKind, Value: "style"},
//	        {Kind: cachegroup.IssuerEntry, Value: "app"},
//	    }}},
//	    {Name: "vendor", Test: cachegroup.Predicate{Kind: cachegroup.PathSegment, Value: "node_modules"}},
//	}
//	c, err := cachegroup.New(rules)
//
// Rules are evaluated in list order and the first match wins. A module whose
// issuer entry cannot be resolved matches no rule.
package cachegroup
