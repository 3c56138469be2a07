// Package arrowbridge bridges an interactive visualization front end to a
// columnar-compute runtime.
//
// Components:
//   - encode: tabular.Dataset -> Arrow IPC file bytes, with deterministic
//     timezone normalization and a one-shot text-coercion fallback for
//     mixed-type generic columns.
//   - store: content-addressed artifact store; sha256 keys, dedup by
//     existence, temp-write + atomic rename publication, no locks.
//   - the Bridge itself: PublishDataset runs encode+store (with an optional
//     provider-backed memo of published References), Handle relays opaque
//     request bytes to the Runtime and reports timing.
//
// The memo layer is an optimization only: with no provider configured every
// publish goes straight to the filesystem and all store guarantees hold
// unchanged. Memo entries are wire-framed with the content key embedded, so
// corrupt or foreign entries are detected and self-healed on read.
//
// Typical wiring:
//
//	br, _ := arrowbridge.New(arrowbridge.Options{
//	    StoreRoot: "/tmp/viz-cache",
//	    Runtime:   rt, // the compute runtime client
//	    Memo:      provider,
//	    Verbose:   true,
//	})
//	ref, _ := br.PublishDataset(ctx, dataset) // ref.URI() goes to the client surface
//	resp, _ := br.Handle(ctx, requestBytes)
package arrowbridge
