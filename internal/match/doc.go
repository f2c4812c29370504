// Package match implements descriptor matching, geometric verification, and
// the candidate-pair generation policies behind each matcher strategy.
//
// Every matcher job shares one pipeline: generate candidate pairs, match
// descriptors with a ratio test, verify the matches against a plausible
// two-view geometry, and persist both raw and verified matches. Strategies
// differ only in which pairs they propose: exhaustive, sequential windows
// with loop-closure probes, spatial neighborhoods, transitive expansion of
// the stored match graph, or visual-index retrieval.
package match
