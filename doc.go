// Viaorg counts countries of users who reach HTTP services through the
// Internet.org free-data proxy.
//
// The proxy adds 'Via: Internet.org' to relayed requests and passes an
// address of the original client in 'X-Forwarded-For'. Given a capture
// of such traffic, viaorg collects unique client addresses, resolves
// them with a local GeoIP database and writes a CSV table of countries
// ordered by popularity.
//
// Input
//
// Either a PDML export (tshark -T pdml) or a raw pcap/pcapng file. Both
// are decoded into the same packet/protocol/field structure.
//
// Database
//
// MaxMind GeoLite2-Country.mmdb by default. CSV files with IPv4 ranges
// (start,finish,country), software77 IpToCountry.csv and IP2Location
// DB1 BIN files (IP2LOCATION-LITE-DB1.BIN) are supported as well.
//
// Output
//
// data.csv in the current directory, one 'country,count' row per
// country, no header. Addresses which cannot be resolved are counted
// as 'Not Known'.
package main
