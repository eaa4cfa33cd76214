// Package tableclient wraps a types.TableRuntime with context-aware calls.
//
// The runtime exposes begin/end primitives that cannot take a
// context.Context. Each Client method starts one primitive, links ctx to the
// primitive's Cancel, waits for the primitive to finish, releases the link
// and returns the primitive's result. Runtime failures are returned as the
// runtime reported them; a call whose context was canceled before the
// primitive finished fails with a *CanceledError.
//
// Every action comes in two forms. The short form uses the runtime's
// default request options and no operation context:
//
//	exists, err := client.Exists(ctx)
//
// The WithOptions form passes both explicitly:
//
//	exists, err := client.ExistsWithOptions(ctx, &types.RequestOptions{ServerTimeout: time.Second}, octx)
//
// Typed segmented queries are package-level functions because methods cannot
// take type parameters:
//
//	seg, err := tableclient.QuerySegmented[Order](ctx, client, query, token)
package tableclient
