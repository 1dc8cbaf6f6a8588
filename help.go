/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircd

// helpTopics gives a one-line usage string per command, surfaced by
// HELP and indirectly by NickServ/ChanServ's own HELP subcommands.
var helpTopics = map[string]string{
	CmdNick:     "NICK <nickname> -- change your nickname",
	CmdUser:     "USER <username> <mode> <unused> :<realname> -- register a connection",
	CmdOper:     "OPER <username> <password> -- become an IRC operator",
	CmdQuit:     "QUIT [:<reason>] -- disconnect from the server",
	CmdJoin:     "JOIN <#channel>[,<#channel>...] [key[,key...]] -- join one or more channels",
	CmdPart:     "PART <#channel>[,<#channel>...] [:<reason>] -- leave one or more channels",
	CmdTopic:    "TOPIC <#channel> [:<topic>] -- view or set a channel's topic",
	CmdNames:    "NAMES [<#channel>[,<#channel>...]] -- list channel members",
	CmdList:     "LIST [<#channel>[,<#channel>...]] -- list channels",
	CmdInvite:   "INVITE <nick> <#channel> -- invite a user to a channel",
	CmdKick:     "KICK <#channel> <nick> [:<reason>] -- remove a user from a channel",
	CmdMode:     "MODE <#channel> [<modes> [args...]] -- view or change channel modes",
	CmdPrivMsg:  "PRIVMSG <target>[,<target>...] :<text> -- send a message",
	CmdNotice:   "NOTICE <target>[,<target>...] :<text> -- send a message without auto-replies",
	CmdMotd:     "MOTD -- show the message of the day",
	CmdVersion:  "VERSION -- show server version",
	CmdAdmin:    "ADMIN -- show administrative contact information",
	CmdLusers:   "LUSERS -- show user/channel counts",
	CmdTime:     "TIME -- show the server's local time",
	CmdStats:    "STATS <letter> -- show server statistics",
	CmdLinks:    "LINKS -- list connected servers",
	CmdHelp:     "HELP [<command>] -- show this help, or help for one command",
	CmdInfo:     "INFO -- show server information",
	CmdWho:      "WHO <mask> -- list users matching mask",
	CmdWhois:    "WHOIS <nick> -- show information about a user",
	CmdWhowas:   "WHOWAS <nick> [count] -- show a former user's history",
	CmdUserhost: "USERHOST <nick>[ <nick>...] -- show hostmasks for the given nicks",
	CmdIson:     "ISON <nick>[ <nick>...] -- check which nicks are online",
	CmdAway:     "AWAY [:<message>] -- set or clear your away status",
	CmdWallops:  "WALLOPS :<text> -- message all +w users (operators only)",
	CmdKill:     "KILL <nick> :<reason> -- disconnect a user (operators only)",
	CmdDie:      "DIE -- shut down the server (operators only)",
	CmdNickserv: "NICKSERV <subcommand> [args...] -- manage your registered nickname",
	CmdChanserv: "CHANSERV <subcommand> [args...] -- manage a registered channel",
}
