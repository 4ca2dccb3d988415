// error instances
//
// Provides a single instance of errors to allow easy comparison.
// Errors are wrapped with fmt.Errorf("...: %w", ...) as they travel up,
// so classify them with the IsErr* helpers or errors.Is, never ==.
package faults

import "errors"

// error base
type GenericError string

// to allow for different classes of errors
type InvalidError GenericError
type NotFoundError GenericError
type TransientError GenericError
type MalformedError GenericError

// common errors - keep in alphabetic order
var (
	ErrBatchReplay           = InvalidError("batch appears to have been folded into the aggregate already")
	ErrCallCountMismatch     = InvalidError("call count does not match batch sample count")
	ErrDuplicateSample       = InvalidError("duplicate sample id in batch")
	ErrEmptyBatch            = InvalidError("batch has no samples")
	ErrInsufficientMarkers   = InvalidError("insufficient markers for kinship estimation")
	ErrInvalidChromosome     = InvalidError("chromosome is invalid")
	ErrInvalidGenotype       = InvalidError("genotype is invalid")
	ErrInvalidMafRange       = InvalidError("maf range is invalid")
	ErrInvalidPosition       = InvalidError("position is invalid")
	ErrInvalidVariant        = InvalidError("variant ref/alt is invalid")
	ErrMissingKeys           = InvalidError("at least one key is required")
	ErrNoSamples             = InvalidError("no samples selected")
	ErrUnknownLedgerBackend  = InvalidError("ledger backend is unknown")
	ErrLedgerRejected        = InvalidError("ledger rejected the request")
	ErrLedgerUnavailable     = TransientError("ledger is unavailable")
	ErrMalformedRecord       = MalformedError("ledger record is malformed")
	ErrMalformedResponse     = MalformedError("ledger response is malformed")
	ErrUnresolvableReference = MalformedError("record references off-record data the ledger cannot resolve")
	ErrStreamNotFound        = NotFoundError("stream not found")
	ErrTxNotFound            = NotFoundError("referenced transaction not found")
	ErrUnknownSample         = NotFoundError("sample id is not in the sample universe")
	ErrUnknownSampleUniverse = NotFoundError("sample universe is unknown for chromosome")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e InvalidError) Error() string   { return string(e) }
func (e NotFoundError) Error() string  { return string(e) }
func (e TransientError) Error() string { return string(e) }
func (e MalformedError) Error() string { return string(e) }

// determine the class of an error, looking through wrapping
func IsErrInvalid(e error) bool   { var target InvalidError; return errors.As(e, &target) }
func IsErrNotFound(e error) bool  { var target NotFoundError; return errors.As(e, &target) }
func IsErrTransient(e error) bool { var target TransientError; return errors.As(e, &target) }
func IsErrMalformed(e error) bool { var target MalformedError; return errors.As(e, &target) }
