package core

// Hooks run on the parameter object of Insert, Update and Delete, and on
// every struct a select maps a row into.
type BeforeInserter interface{ BeforeInsert() error }
type AfterInserter interface{ AfterInsert(affected int64) error }
type BeforeUpdater interface{ BeforeUpdate() error }
type AfterUpdater interface{ AfterUpdate(affected int64) error }
type BeforeDeleter interface{ BeforeDelete() error }
type AfterDeleter interface{ AfterDelete(affected int64) error }
type AfterFinder interface{ AfterFind() error }
