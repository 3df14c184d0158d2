// Package console reads operator commands line by line and feeds them to the
// alarm engine.
//
// Accepted commands:
//
//	Start_Alarm(<id>): Group(<group>) <seconds> <message>
//	Change_Alarm(<id>): Group(<group>) <seconds> <message>
//	List_Alarms
package console
