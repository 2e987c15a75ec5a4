package netflow

import (
	"fmt"
	"strconv"
)

// Element is an IANA IPFIX information element identifier.
// NetFlow v9 field types share the same numbering below 128 and for the NAT elements.
type Element uint16

const (
	OctetDeltaCount               Element = 1
	PacketDeltaCount              Element = 2
	DeltaFlowCount                Element = 3
	ProtocolIdentifier            Element = 4
	IpClassOfService              Element = 5
	TcpControlBits                Element = 6
	SourceTransportPort           Element = 7
	SourceIPv4Address             Element = 8
	SourceIPv4PrefixLength        Element = 9
	IngressInterface              Element = 10
	DestinationTransportPort      Element = 11
	DestinationIPv4Address        Element = 12
	DestinationIPv4PrefixLength   Element = 13
	EgressInterface               Element = 14
	IpNextHopIPv4Address          Element = 15
	BgpSourceAsNumber             Element = 16
	BgpDestinationAsNumber        Element = 17
	BgpNextHopIPv4Address         Element = 18
	FlowEndSysUpTime              Element = 21
	FlowStartSysUpTime            Element = 22
	PostOctetDeltaCount           Element = 23
	PostPacketDeltaCount          Element = 24
	SourceIPv6Address             Element = 27
	DestinationIPv6Address        Element = 28
	SourceIPv6PrefixLength        Element = 29
	DestinationIPv6PrefixLength   Element = 30
	FlowLabelIPv6                 Element = 31
	IcmpTypeCodeIPv4              Element = 32
	SamplingInterval              Element = 34
	SamplingAlgorithm             Element = 35
	FlowActiveTimeout             Element = 36
	FlowIdleTimeout               Element = 37
	EngineType                    Element = 38
	EngineId                      Element = 39
	ExportedOctetTotalCount       Element = 40
	ExportedMessageTotalCount     Element = 41
	ExportedFlowRecordTotalCount  Element = 42
	SamplerId                     Element = 48
	SamplerMode                   Element = 49
	SamplerRandomInterval         Element = 50
	MinimumTTL                    Element = 52
	MaximumTTL                    Element = 53
	SourceMacAddress              Element = 56
	PostDestinationMacAddress     Element = 57
	VlanId                        Element = 58
	PostVlanId                    Element = 59
	IpVersion                     Element = 60
	FlowDirection                 Element = 61
	IpNextHopIPv6Address          Element = 62
	BgpNextHopIPv6Address         Element = 63
	DestinationMacAddress         Element = 80
	PostSourceMacAddress          Element = 81
	InterfaceName                 Element = 82
	InterfaceDescription          Element = 83
	OctetTotalCount               Element = 85
	PacketTotalCount              Element = 86
	ForwardingStatus              Element = 89
	FlowEndReason                 Element = 136
	IcmpTypeCodeIPv6              Element = 139
	FlowId                        Element = 148
	ObservationDomainId           Element = 149
	FlowStartSeconds              Element = 150
	FlowEndSeconds                Element = 151
	FlowStartMilliseconds         Element = 152
	FlowEndMilliseconds           Element = 153
	FlowStartMicroseconds         Element = 154
	FlowEndMicroseconds           Element = 155
	FlowStartNanoseconds          Element = 156
	FlowEndNanoseconds            Element = 157
	SystemInitTimeMilliseconds    Element = 160
	IcmpTypeIPv4                  Element = 176
	IcmpCodeIPv4                  Element = 177
	IcmpTypeIPv6                  Element = 178
	IcmpCodeIPv6                  Element = 179
	IpTTL                         Element = 192
	PostNATSourceIPv4Address      Element = 225
	PostNATDestinationIPv4Address Element = 226
	PostNAPTSourceTransportPort   Element = 227
	PostNAPTDestinationPort       Element = 228
	NatOriginatingAddressRealm    Element = 229
	NatEvent                      Element = 230
	InitiatorOctets               Element = 231
	ResponderOctets               Element = 232
	FirewallEvent                 Element = 233
	IngressVRFID                  Element = 234
	EgressVRFID                   Element = 235
	Dot1qVlanId                   Element = 243
	PostNATSourceIPv6Address      Element = 281
	PostNATDestinationIPv6Address Element = 282
	NatPoolId                     Element = 283
	NatPoolName                   Element = 284
	ObservationTimeMilliseconds   Element = 323
	PortRangeStart                Element = 361
	PortRangeEnd                  Element = 362
	PortRangeStepSize             Element = 363
	PortRangeNumPorts             Element = 364
)

type elementKind uint8

const (
	kindUnsigned elementKind = iota
	kindAddress
	kindMac
	kindString
)

type elementInfo struct {
	name  string
	alias string // NetFlow v9 field name, when one exists
	kind  elementKind
}

var elements = map[Element]elementInfo{
	OctetDeltaCount:               {"octetDeltaCount", "IN_BYTES", kindUnsigned},
	PacketDeltaCount:              {"packetDeltaCount", "IN_PKTS", kindUnsigned},
	DeltaFlowCount:                {"deltaFlowCount", "FLOWS", kindUnsigned},
	ProtocolIdentifier:            {"protocolIdentifier", "PROTOCOL", kindUnsigned},
	IpClassOfService:              {"ipClassOfService", "SRC_TOS", kindUnsigned},
	TcpControlBits:                {"tcpControlBits", "TCP_FLAGS", kindUnsigned},
	SourceTransportPort:           {"sourceTransportPort", "L4_SRC_PORT", kindUnsigned},
	SourceIPv4Address:             {"sourceIPv4Address", "IPV4_SRC_ADDR", kindAddress},
	SourceIPv4PrefixLength:        {"sourceIPv4PrefixLength", "SRC_MASK", kindUnsigned},
	IngressInterface:              {"ingressInterface", "INPUT_SNMP", kindUnsigned},
	DestinationTransportPort:      {"destinationTransportPort", "L4_DST_PORT", kindUnsigned},
	DestinationIPv4Address:        {"destinationIPv4Address", "IPV4_DST_ADDR", kindAddress},
	DestinationIPv4PrefixLength:   {"destinationIPv4PrefixLength", "DST_MASK", kindUnsigned},
	EgressInterface:               {"egressInterface", "OUTPUT_SNMP", kindUnsigned},
	IpNextHopIPv4Address:          {"ipNextHopIPv4Address", "IPV4_NEXT_HOP", kindAddress},
	BgpSourceAsNumber:             {"bgpSourceAsNumber", "SRC_AS", kindUnsigned},
	BgpDestinationAsNumber:        {"bgpDestinationAsNumber", "DST_AS", kindUnsigned},
	BgpNextHopIPv4Address:         {"bgpNextHopIPv4Address", "BGP_IPV4_NEXT_HOP", kindAddress},
	FlowEndSysUpTime:              {"flowEndSysUpTime", "LAST_SWITCHED", kindUnsigned},
	FlowStartSysUpTime:            {"flowStartSysUpTime", "FIRST_SWITCHED", kindUnsigned},
	PostOctetDeltaCount:           {"postOctetDeltaCount", "OUT_BYTES", kindUnsigned},
	PostPacketDeltaCount:          {"postPacketDeltaCount", "OUT_PKTS", kindUnsigned},
	SourceIPv6Address:             {"sourceIPv6Address", "IPV6_SRC_ADDR", kindAddress},
	DestinationIPv6Address:        {"destinationIPv6Address", "IPV6_DST_ADDR", kindAddress},
	SourceIPv6PrefixLength:        {"sourceIPv6PrefixLength", "IPV6_SRC_MASK", kindUnsigned},
	DestinationIPv6PrefixLength:   {"destinationIPv6PrefixLength", "IPV6_DST_MASK", kindUnsigned},
	FlowLabelIPv6:                 {"flowLabelIPv6", "IPV6_FLOW_LABEL", kindUnsigned},
	IcmpTypeCodeIPv4:              {"icmpTypeCodeIPv4", "ICMP_TYPE", kindUnsigned},
	SamplingInterval:              {"samplingInterval", "SAMPLING_INTERVAL", kindUnsigned},
	SamplingAlgorithm:             {"samplingAlgorithm", "SAMPLING_ALGORITHM", kindUnsigned},
	FlowActiveTimeout:             {"flowActiveTimeout", "FLOW_ACTIVE_TIMEOUT", kindUnsigned},
	FlowIdleTimeout:               {"flowIdleTimeout", "FLOW_INACTIVE_TIMEOUT", kindUnsigned},
	EngineType:                    {"engineType", "ENGINE_TYPE", kindUnsigned},
	EngineId:                      {"engineId", "ENGINE_ID", kindUnsigned},
	ExportedOctetTotalCount:       {"exportedOctetTotalCount", "TOTAL_BYTES_EXP", kindUnsigned},
	ExportedMessageTotalCount:     {"exportedMessageTotalCount", "TOTAL_PKTS_EXP", kindUnsigned},
	ExportedFlowRecordTotalCount:  {"exportedFlowRecordTotalCount", "TOTAL_FLOWS_EXP", kindUnsigned},
	SamplerId:                     {"samplerId", "FLOW_SAMPLER_ID", kindUnsigned},
	SamplerMode:                   {"samplerMode", "FLOW_SAMPLER_MODE", kindUnsigned},
	SamplerRandomInterval:         {"samplerRandomInterval", "FLOW_SAMPLER_RANDOM_INTERVAL", kindUnsigned},
	MinimumTTL:                    {"minimumTTL", "MIN_TTL", kindUnsigned},
	MaximumTTL:                    {"maximumTTL", "MAX_TTL", kindUnsigned},
	SourceMacAddress:              {"sourceMacAddress", "IN_SRC_MAC", kindMac},
	PostDestinationMacAddress:     {"postDestinationMacAddress", "OUT_DST_MAC", kindMac},
	VlanId:                        {"vlanId", "SRC_VLAN", kindUnsigned},
	PostVlanId:                    {"postVlanId", "DST_VLAN", kindUnsigned},
	IpVersion:                     {"ipVersion", "IP_PROTOCOL_VERSION", kindUnsigned},
	FlowDirection:                 {"flowDirection", "DIRECTION", kindUnsigned},
	IpNextHopIPv6Address:          {"ipNextHopIPv6Address", "IPV6_NEXT_HOP", kindAddress},
	BgpNextHopIPv6Address:         {"bgpNextHopIPv6Address", "BPG_IPV6_NEXT_HOP", kindAddress},
	DestinationMacAddress:         {"destinationMacAddress", "IN_DST_MAC", kindMac},
	PostSourceMacAddress:          {"postSourceMacAddress", "OUT_SRC_MAC", kindMac},
	InterfaceName:                 {"interfaceName", "IF_NAME", kindString},
	InterfaceDescription:          {"interfaceDescription", "IF_DESC", kindString},
	OctetTotalCount:               {"octetTotalCount", "IN_PERMANENT_BYTES", kindUnsigned},
	PacketTotalCount:              {"packetTotalCount", "IN_PERMANENT_PKTS", kindUnsigned},
	ForwardingStatus:              {"forwardingStatus", "FORWARDING_STATUS", kindUnsigned},
	FlowEndReason:                 {"flowEndReason", "", kindUnsigned},
	IcmpTypeCodeIPv6:              {"icmpTypeCodeIPv6", "", kindUnsigned},
	FlowId:                        {"flowId", "", kindUnsigned},
	ObservationDomainId:           {"observationDomainId", "", kindUnsigned},
	FlowStartSeconds:              {"flowStartSeconds", "", kindUnsigned},
	FlowEndSeconds:                {"flowEndSeconds", "", kindUnsigned},
	FlowStartMilliseconds:         {"flowStartMilliseconds", "", kindUnsigned},
	FlowEndMilliseconds:           {"flowEndMilliseconds", "", kindUnsigned},
	FlowStartMicroseconds:         {"flowStartMicroseconds", "", kindUnsigned},
	FlowEndMicroseconds:           {"flowEndMicroseconds", "", kindUnsigned},
	FlowStartNanoseconds:          {"flowStartNanoseconds", "", kindUnsigned},
	FlowEndNanoseconds:            {"flowEndNanoseconds", "", kindUnsigned},
	SystemInitTimeMilliseconds:    {"systemInitTimeMilliseconds", "", kindUnsigned},
	IcmpTypeIPv4:                  {"icmpTypeIPv4", "", kindUnsigned},
	IcmpCodeIPv4:                  {"icmpCodeIPv4", "", kindUnsigned},
	IcmpTypeIPv6:                  {"icmpTypeIPv6", "", kindUnsigned},
	IcmpCodeIPv6:                  {"icmpCodeIPv6", "", kindUnsigned},
	IpTTL:                         {"ipTTL", "", kindUnsigned},
	PostNATSourceIPv4Address:      {"postNATSourceIPv4Address", "XLATE_SRC_ADDR_IPV4", kindAddress},
	PostNATDestinationIPv4Address: {"postNATDestinationIPv4Address", "XLATE_DST_ADDR_IPV4", kindAddress},
	PostNAPTSourceTransportPort:   {"postNAPTSourceTransportPort", "XLATE_SRC_PORT", kindUnsigned},
	PostNAPTDestinationPort:       {"postNAPTDestinationTransportPort", "XLATE_DST_PORT", kindUnsigned},
	NatOriginatingAddressRealm:    {"natOriginatingAddressRealm", "", kindUnsigned},
	NatEvent:                      {"natEvent", "NAT_EVENT", kindUnsigned},
	InitiatorOctets:               {"initiatorOctets", "", kindUnsigned},
	ResponderOctets:               {"responderOctets", "", kindUnsigned},
	FirewallEvent:                 {"firewallEvent", "", kindUnsigned},
	IngressVRFID:                  {"ingressVRFID", "INGRESS_VRFID", kindUnsigned},
	EgressVRFID:                   {"egressVRFID", "EGRESS_VRFID", kindUnsigned},
	Dot1qVlanId:                   {"dot1qVlanId", "", kindUnsigned},
	PostNATSourceIPv6Address:      {"postNATSourceIPv6Address", "XLATE_SRC_ADDR_IPV6", kindAddress},
	PostNATDestinationIPv6Address: {"postNATDestinationIPv6Address", "XLATE_DST_ADDR_IPV6", kindAddress},
	NatPoolId:                     {"natPoolId", "", kindUnsigned},
	NatPoolName:                   {"natPoolName", "", kindString},
	ObservationTimeMilliseconds:   {"observationTimeMilliseconds", "", kindUnsigned},
	PortRangeStart:                {"portRangeStart", "", kindUnsigned},
	PortRangeEnd:                  {"portRangeEnd", "", kindUnsigned},
	PortRangeStepSize:             {"portRangeStepSize", "", kindUnsigned},
	PortRangeNumPorts:             {"portRangeNumPorts", "", kindUnsigned},
}

var elementsByName = func() map[string]Element {
	m := make(map[string]Element, 2*len(elements))
	for id, info := range elements {
		m[info.name] = id
		if info.alias != "" {
			m[info.alias] = id
		}
	}
	return m
}()

// LookupElement resolves an IANA element name or NetFlow v9 field name.
// Numeric identifiers are accepted as well.
func LookupElement(name string) (Element, error) {
	if id, ok := elementsByName[name]; ok {
		return id, nil
	}
	if id, err := strconv.ParseUint(name, 10, 16); err == nil {
		return Element(id), nil
	}
	return 0, fmt.Errorf("unknown information element %q", name)
}

// ElementName returns the IANA name of an element or its number when unknown.
func ElementName(id uint16) string {
	if info, ok := elements[Element(id)]; ok {
		return info.name
	}
	return strconv.Itoa(int(id))
}

func (e Element) String() string {
	return ElementName(uint16(e))
}

// IsAddress reports whether the element carries an IPv4 or IPv6 address.
func (e Element) IsAddress() bool {
	return elements[e].kind == kindAddress
}

// IsMac reports whether the element carries a MAC address.
func (e Element) IsMac() bool {
	return elements[e].kind == kindMac
}

// IsString reports whether the element carries a string.
func (e Element) IsString() bool {
	return elements[e].kind == kindString
}
