package crashkit_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/beaconops/crashkit"
)

var errCheckout = crashkit.Define("checkout_failed", 402)

// Example_define demonstrates declaring an error variant and matching
// instances against it.
func Example_define() {
	err := errCheckout.New("card declined", "order_id", 7)

	fmt.Println(err)
	fmt.Println("code:", err.Code())
	fmt.Println("matches variant:", errors.Is(err, errCheckout))

	// Output:
	// card declined
	// code: 402
	// matches variant: true
}

// Example_wrap demonstrates attaching a variant and context to an error from
// another package while preserving the original for errors.Is.
func Example_wrap() {
	cause := sql.ErrNoRows
	err := errCheckout.Wrap(cause, "loading payment method", "user_id", 9)

	fmt.Println(err)
	fmt.Println("contains original:", errors.Is(err, sql.ErrNoRows))

	// Output:
	// loading payment method: sql: no rows in result set
	// contains original: true
}

// Example_payload demonstrates the flat mapping a structured error serializes
// to. json.Marshal sorts the keys, so the output is stable.
func Example_payload() {
	err := errCheckout.New("card declined", "order_id", 7)

	body, _ := json.Marshal(err.Payload())
	fmt.Println(string(body))

	// Output:
	// {"error":"checkout_failed","error_code":402,"message":"card declined","order_id":7}
}

// Example_payload_nullMessage demonstrates that a missing message is carried
// as an explicit null rather than dropped.
func Example_payload_nullMessage() {
	err := errCheckout.New("")

	body, _ := json.Marshal(err.Payload())
	fmt.Println(string(body))

	// Output:
	// {"error":"checkout_failed","error_code":402,"message":null}
}

// Example_mergeContext demonstrates the precedence rule: context supplied at
// the report site overrides the context carried by the error.
func Example_mergeContext() {
	err := crashkit.New("quota exceeded", "user_id", 123, "plan", "free")
	merged := crashkit.MergeContext(err, map[string]any{"user_id": 999})

	body, _ := json.Marshal(merged)
	fmt.Println(string(body))

	// Output:
	// {"plan":"free","user_id":999}
}

type echoSink struct{ crashkit.NoopSink }

func (echoSink) Notify(_ context.Context, err error, extra map[string]any) (crashkit.EventID, error) {
	body, _ := json.Marshal(extra)
	fmt.Printf("reported %q with %s\n", err.Error(), body)
	return "ev-1", nil
}

// Example_notify demonstrates the full reporting path through a custom sink.
func Example_notify() {
	n, _ := crashkit.NewNotifier(crashkit.Config{}, crashkit.WithSink(echoSink{}))

	err := crashkit.New("upload failed", "bucket", "avatars")
	id, _ := n.Notify(context.Background(), err, map[string]any{"request_id": "r-42"})
	fmt.Println("event:", id)

	// Output:
	// reported "upload failed" with {"bucket":"avatars","request_id":"r-42"}
	// event: ev-1
}
