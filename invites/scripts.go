package invites

// Environment variables the invite scripts read their arguments from.
const (
	EnvDatabasePath = "MAYO_DATABASE_PATH"
	EnvInviteID     = "MAYO_INVITE_ID"
	EnvInviteUses   = "MAYO_INVITE_USES"
	EnvInvitePerms  = "MAYO_INVITE_PERMS"
)

// Script is one of the fixed programs run inside an instance. Arguments are never part of
// the program text; they travel in the exec environment.
type Script int

const (
	ScriptCreate Script = iota
	ScriptList
	ScriptDelete
)

const createScript = `
import { Database } from "bun:sqlite";
const env = process.env;
const database = new Database(env.MAYO_DATABASE_PATH);
const uses = env.MAYO_INVITE_USES ? Number(env.MAYO_INVITE_USES) : null;
database
  .query("insert into invites (id, uses, perms) values (?1, ?2, ?3);")
  .run(env.MAYO_INVITE_ID, uses, Number(env.MAYO_INVITE_PERMS));
console.write(env.MAYO_INVITE_ID);
`

const listScript = `
import { Database } from "bun:sqlite";
const database = new Database(process.env.MAYO_DATABASE_PATH);
const invites = database.query("select id, uses, perms from invites;").all();
console.write(JSON.stringify(invites));
`

const deleteScript = `
import { Database } from "bun:sqlite";
const env = process.env;
const database = new Database(env.MAYO_DATABASE_PATH);
database.query("delete from invites where id = ?1;").run(env.MAYO_INVITE_ID);
`

func (s Script) String() string {
	switch s {
	case ScriptCreate:
		return "create"
	case ScriptList:
		return "list"
	case ScriptDelete:
		return "delete"
	default:
		return "unknown"
	}
}

func (s Script) body() string {
	switch s {
	case ScriptCreate:
		return createScript
	case ScriptList:
		return listScript
	case ScriptDelete:
		return deleteScript
	default:
		panic("unknown invite script")
	}
}

// Command returns the argv that runs the script.
func (s Script) Command() []string {
	return []string{"bun", "-e", s.body()}
}
