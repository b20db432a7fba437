/*
Package compiler turns agreement conditions into programs for the
condition VM in protocol/vm.

A condition is an infix expression:

  expr     = operand | "(" expr ")" | expr binop expr | "!" expr
  binop    = "==" | "!=" | "<" | ">" | "<=" | ">=" | "and" | "or" | "xor" | "swap"
  operand  = decimal | address | string | "true" | "false"
             | identifier | identifier ".length" | identifier "[" decimal "]"
  address  = "0x" 40 hex digits
  string   = '"' non-space characters '"'

Tokens are separated by whitespace. Parentheses are always tokens of
their own, so "(a==b)" is not the same as "( a == b )": the first
yields the single operand token "a==b".

Operators bind in four ranks, tightest first:

  1  !
  2  == != < > <= >=
  3  and swap
  4  or xor

Operators of the same rank associate to the left. Compilation happens
in three passes: Tokenize, Convert (shunting-yard to postfix) and
Encode. The result of each pass is kept in the returned Program.

Identifiers are resolved when the program runs, against the variables
of the application and the named arrays bound to the VM context.
*/
package compiler
