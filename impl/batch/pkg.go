// Package batch drives the transfer of a list of images through a bounded pool of
// workers. Each image becomes a WorkItem. Workers pull (and optionally save) the
// image and report an Outcome. The coordinator collects exactly one Outcome per
// item, in input order, regardless of the order in which the workers finish.
package batch
