// SubTrack - sub-fabrication shipment tracker
//
// Build:
//
//	go build -o subtrack ./cmd/subtrack
//
// Run the API with `subtrack serve`, or plan cuts from a part list with
// `subtrack plan --parts parts.csv`.
package main

import "github.com/piwi3910/SubTrack/internal/cli"

func main() {
	cli.Execute()
}
