package store

import "context"

type scopeKey struct{}

type scope struct {
	owner Store
	tx    Tx
	hooks []func()
}

func begin(ctx context.Context, owner Store, tx Tx) (context.Context, *scope) {
	sc := &scope{owner: owner, tx: tx}
	return context.WithValue(ctx, scopeKey{}, sc), sc
}

func joined(ctx context.Context, owner Store) (Tx, bool) {
	sc, ok := ctx.Value(scopeKey{}).(*scope)
	if !ok || sc.owner != owner {
		return nil, false
	}
	return sc.tx, true
}

func (sc *scope) run() {
	for _, fn := range sc.hooks {
		fn()
	}
	sc.hooks = nil
}

// AfterCommit defers fn until the transaction carried by ctx commits. fn is
// dropped if the transaction rolls back. It returns false when ctx carries no
// transaction, leaving the caller to decide what to do with fn.
//
// Hooks run while the store still serializes commits, so they must not open
// another transaction.
func AfterCommit(ctx context.Context, fn func()) bool {
	sc, ok := ctx.Value(scopeKey{}).(*scope)
	if !ok {
		return false
	}
	sc.hooks = append(sc.hooks, fn)
	return true
}
