package serviceInfo

import "fmt"

type ServiceInfo string

var (
	SERVICE_NAME        ServiceInfo = "PrecisionChain Variant Service"
	SERVICE_WELCOME     ServiceInfo = "Welcome to the PrecisionChain variant ledger API!"
	SERVICE_DESCRIPTION ServiceInfo = "Sparse genotype storage, allele frequency aggregation and kinship inference over an append-only ledger."
	SERVICE_CONTACT     ServiceInfo = "mailto:precisionchain@g2lab.org"

	SERVICE_ARTIFACT    ServiceInfo = "precisionchain"
	SERVICE_VERSION     ServiceInfo = "0.1.0"
	SERVICE_TYPE_NO_VER ServiceInfo = ServiceInfo(fmt.Sprintf("org.g2lab:%s", SERVICE_ARTIFACT))
	SERVICE_ID          ServiceInfo = SERVICE_TYPE_NO_VER
	SERVICE_TYPE        ServiceInfo = ServiceInfo(fmt.Sprintf("%s:%s", SERVICE_TYPE_NO_VER, SERVICE_VERSION))
)
