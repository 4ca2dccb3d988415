package constants

/*
	Defines a set of base level
	constants and enums to be used
	throughout PrecisionChain and its
	associated services.
*/
type Genotype string
type Relationship string
type LedgerBackend string

type CallStatus int
type Zygosity int
