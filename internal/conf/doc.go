// Package conf implements a hierarchical configuration tree with
// lock-free reads for concurrent consumers.
//
// A tree is built from a descriptor table (see internal/conf/opt) and
// flattens nested tables into dash-joined option names: a "timeout" option
// inside a "network" table becomes "network-timeout". Writers mutate the
// tree through the set API on a single owning goroutine; readers attach a
// Cache to the tree's Shadow and poll Update, which is a single atomic load
// on the no-change path.
//
// On top of the core tree the package layers profiles (named bundles of
// key/value pairs applied as a unit), value backups with restore, config
// file inclusion, and structured get/set via internal/conf/node.
package conf
